package handlers

import "github.com/gin-gonic/gin"

// errorResponse is the JSON error envelope shared by all handlers.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}
