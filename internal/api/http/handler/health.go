package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/account-server/internal/api/http/response"
	"github.com/dtroode/account-server/internal/apierror"
	"github.com/dtroode/account-server/internal/logger"
)

// Pinger reports whether the credential store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health serves the liveness endpoint.
type Health struct {
	store  Pinger
	logger *logger.Logger
}

func NewHealth(store Pinger, logger *logger.Logger) *Health {
	return &Health{store: store, logger: logger}
}

func (h *Health) Check(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Health handler: store ping failed",
			"error", err.Error())
		response.Error(c, apierror.NewErrInternal(err))
		return
	}
	response.JSON(c, http.StatusOK, nil, "OK")
}
