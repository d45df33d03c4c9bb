package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Setup builds the process logger. Format "text" writes a console-friendly
// stream, anything else emits JSON.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	if format == "text" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return logger
}
