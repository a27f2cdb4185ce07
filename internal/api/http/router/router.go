package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dtroode/account-server/internal/api/http/cookie"
	"github.com/dtroode/account-server/internal/api/http/handler"
	"github.com/dtroode/account-server/internal/api/http/middleware"
	"github.com/dtroode/account-server/internal/logger"
	"github.com/dtroode/account-server/internal/model"
)

const (
	maxMultipartMemory = 8 << 20
	corsMaxAge         = 12 * time.Hour
)

// Options holds transport settings taken from configuration.
type Options struct {
	Cookies cookie.Options
	// AllowedOrigins enables credentialed CORS for these origins. Empty disables CORS.
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// SessionService is the session manager as seen by handlers and the auth middleware.
type SessionService interface {
	handler.SessionService
	middleware.TokenService
}

// Router builds the gin engine for the account API.
type Router struct {
	sessionService SessionService
	accountService handler.AccountService
	store          handler.Pinger
	contextManager model.ContextManager
	options        Options
	logger         *logger.Logger
}

// New creates new Router instance.
func New(
	sessionService SessionService,
	accountService handler.AccountService,
	store handler.Pinger,
	contextManager model.ContextManager,
	options Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		sessionService: sessionService,
		accountService: accountService,
		store:          store,
		contextManager: contextManager,
		options:        options,
		logger:         logger,
	}
}

// Register wires middleware and all routes under /api/v1.
func (r *Router) Register() *gin.Engine {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.sessionService, r.contextManager, r.logger)

	engine := gin.New()
	engine.MaxMultipartMemory = maxMultipartMemory
	engine.Use(logging.Handle, gin.Recovery())
	if len(r.options.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     r.options.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		}))
	}
	engine.Use(middleware.NewBodyLimit(r.options.MaxBodyBytes).Handle)

	api := engine.Group("/api/v1")

	health := handler.NewHealth(r.store, r.logger)
	api.GET("/healthcheck", health.Check)

	r.registerUserRoutes(api.Group("/users"), authenticate)

	return engine
}

func (r *Router) registerUserRoutes(users *gin.RouterGroup, authenticate *middleware.Authenticate) {
	h := handler.NewUser(r.sessionService, r.accountService, r.contextManager, r.options.Cookies, r.logger)

	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/refresh-token", h.RefreshToken)

	secured := users.Group("", authenticate.Handle)
	secured.POST("/logout", h.Logout)
	secured.POST("/change-password", h.ChangePassword)
	secured.GET("/current-user", h.CurrentUser)
	secured.PATCH("/update-account", h.UpdateAccount)
	secured.PATCH("/avatar", h.UpdateAvatar)
	secured.PATCH("/cover-image", h.UpdateCoverImage)

	// Paths of the first API version, kept for existing clients.
	secured.POST("/update-info", h.UpdateAccount)
	secured.POST("/update-avatar", h.UpdateAvatar)
	secured.POST("/update-coverImage", h.UpdateCoverImage)
}
