// Package store provides durable, concurrency-safe storage for the
// certificate platform. Each collection is a single JSON document mapping
// primary key to record, guarded by its own mutex and rewritten wholesale
// on every mutation. Collections are independent: a write to one never
// blocks another.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// collection is a file-backed map of id to record. All access goes through
// the mutex; a mutation reads the whole file, applies the change in memory
// and rewrites the file before releasing the lock, so readers never observe
// a partial write.
type collection[T any] struct {
	path   string
	strict bool
	logger zerolog.Logger
	mu     sync.Mutex
}

func newCollection[T any](path string, strict bool, logger zerolog.Logger) (*collection[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &collection[T]{path: path, strict: strict, logger: logger}, nil
}

// read loads the backing file. A missing file is an empty collection. A
// corrupt file is an empty collection too, logged at warn, unless strict
// mode is on.
func (c *collection[T]) read() (map[string]T, error) {
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return map[string]T{}, nil
	}
	if err != nil {
		if c.strict {
			return nil, fmt.Errorf("failed to read collection %s: %w", c.path, err)
		}
		c.logger.Warn().Err(err).Str("path", c.path).Msg("unreadable collection, treating as empty")
		return map[string]T{}, nil
	}

	data := map[string]T{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		if c.strict {
			return nil, fmt.Errorf("failed to parse collection %s: %w", c.path, err)
		}
		c.logger.Warn().Err(err).Str("path", c.path).Msg("corrupt collection, treating as empty")
		return map[string]T{}, nil
	}
	return data, nil
}

// write replaces the backing file via temp file + rename so a crash
// mid-write never leaves a truncated document.
func (c *collection[T]) write(data map[string]T) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace collection: %w", err)
	}
	return nil
}

// Get returns the record with the given id, or nil if absent.
func (c *collection[T]) Get(id string) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return nil, err
	}
	rec, ok := data[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// List returns every record in the collection, in no particular order.
func (c *collection[T]) List() ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(data))
	for _, rec := range data {
		out = append(out, rec)
	}
	return out, nil
}

// Save upserts the record under id.
func (c *collection[T]) Save(id string, rec T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return err
	}
	data[id] = rec
	return c.write(data)
}

// Delete removes the record under id. Deleting an absent id is a no-op.
func (c *collection[T]) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return err
	}
	delete(data, id)
	return c.write(data)
}

// Update applies fn to the record under id while holding the lock. If the
// record is absent, fn is not called and (nil, nil) is returned.
func (c *collection[T]) Update(id string, fn func(*T)) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.read()
	if err != nil {
		return nil, err
	}
	rec, ok := data[id]
	if !ok {
		return nil, nil
	}
	fn(&rec)
	data[id] = rec
	if err := c.write(data); err != nil {
		return nil, err
	}
	return &rec, nil
}
