// Package response writes the JSON envelope shared by every waitlist
// endpoint: {"success": bool, "data": ..., "error": {...}}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

// ErrorData carries a stable machine-readable code next to the message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func ok(data interface{}) Response {
	return Response{Success: true, Data: data}
}

func failure(code, message, details string) Response {
	return Response{Error: &ErrorData{Code: code, Message: message, Details: details}}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, ok(data))
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, ok(data))
}

func Error(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, failure(code, message, details))
}

// Abort writes the error envelope and stops the handler chain
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, failure(code, message, ""))
}
