package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/account-server/internal/logger"
)

// Logging logs method, path, duration and status for each request.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) Handle(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path

	l.logger.Debug("HTTP request started",
		"method", c.Request.Method,
		"path", path)

	c.Next()

	status := c.Writer.Status()
	l.logger.Info("HTTP request completed",
		"method", c.Request.Method,
		"path", path,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", status)

	if len(c.Errors) == 0 {
		return
	}
	if status >= http.StatusInternalServerError {
		l.logger.Error("HTTP request failed",
			"method", c.Request.Method,
			"path", path,
			"error", c.Errors.String(),
			"status", status)
	} else {
		l.logger.Debug("HTTP request rejected",
			"method", c.Request.Method,
			"path", path,
			"error", c.Errors.String(),
			"status", status)
	}
}
