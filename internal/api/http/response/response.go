package response

import (
	"github.com/gin-gonic/gin"

	"github.com/dtroode/account-server/internal/apierror"
)

// Envelope wraps every JSON response body.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// JSON writes a successful response.
func JSON(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	})
}

// Error aborts the request with the status and client-safe message of err.
// The full error is attached to the gin context for the logging middleware.
func Error(c *gin.Context, err error) {
	apiErr := apierror.From(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.HTTPCode, Envelope{
		StatusCode: apiErr.HTTPCode,
		Message:    apiErr.Message,
		Success:    false,
	})
}
