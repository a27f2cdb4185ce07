package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/account-server/internal/api/http/response"
)

// BodyLimit caps JSON and form-urlencoded request bodies. Multipart uploads are
// bounded by the engine's multipart memory instead.
type BodyLimit struct {
	limit int64
}

// NewBodyLimit creates a BodyLimit; a non-positive limit disables the check.
func NewBodyLimit(limit int64) *BodyLimit {
	return &BodyLimit{limit: limit}
}

func (m *BodyLimit) Handle(c *gin.Context) {
	if m.limit <= 0 || c.Request.Body == nil || strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Next()
		return
	}

	if c.Request.ContentLength > m.limit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, response.Envelope{
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    "request body too large",
			Success:    false,
		})
		return
	}

	// Chunked bodies carry no length; reads past the limit fail in binding.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, m.limit)
	c.Next()
}
