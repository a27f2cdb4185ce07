package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/account-server/internal/api/http/cookie"
	"github.com/dtroode/account-server/internal/api/http/response"
	"github.com/dtroode/account-server/internal/apierror"
	"github.com/dtroode/account-server/internal/logger"
	"github.com/dtroode/account-server/internal/model"
)

// TokenService resolves user ID from access tokens.
type TokenService interface {
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// Authenticate validates access tokens and injects user ID into the request context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// Handle reads the access token from the cookie or the Authorization header.
func (m *Authenticate) Handle(c *gin.Context) {
	tokenString, _ := c.Cookie(cookie.AccessToken)
	if tokenString == "" {
		tokenString = bearerToken(c.GetHeader("Authorization"))
	}

	if tokenString == "" {
		response.Error(c, apierror.NewErrUnauthorized())
		return
	}

	userID, err := m.tokenService.Authenticate(c.Request.Context(), tokenString)
	if err != nil || userID == uuid.Nil {
		m.logger.Debug("Authenticate middleware: rejected access token",
			"path", c.Request.URL.Path)
		response.Error(c, apierror.NewErrUnauthorized())
		return
	}

	c.Request = c.Request.WithContext(m.contextManager.SetUserIDToContext(c.Request.Context(), userID))
	c.Next()
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
