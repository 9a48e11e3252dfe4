package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/http/middleware"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/sound"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/storage"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type PermissionRequester interface {
	RequestPermission(ctx context.Context, userID string) bool
	Backend() string
}

type Handler struct {
	Service     *service.Service
	Store       Pinger
	Hub         *realtime.Hub
	Storage     *storage.Local
	Synth       *sound.Synth
	Permissions PermissionRequester
	Upgrader    websocket.Upgrader
	Logger      zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	resp := gin.H{"status": "ok"}
	if h.Permissions != nil {
		resp["notifications"] = h.Permissions.Backend()
	}
	if h.Hub != nil {
		resp["realtime_subscriptions"] = h.Hub.Count()
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// fail maps service errors onto the error envelope.
func (h *Handler) fail(c *gin.Context, err error, message string) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrWorkNotAuthorized):
		status, code = http.StatusForbidden, "WORK_NOT_AUTHORIZED"
	case errors.Is(err, service.ErrInvalidInput):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, service.ErrAmountMismatch):
		status, code = http.StatusUnprocessableEntity, "AMOUNT_MISMATCH"
	case errors.Is(err, service.ErrFinalPaymentRequired):
		status, code = http.StatusConflict, "FINAL_PAYMENT_REQUIRED"
	case errors.Is(err, service.ErrInvalidTransition):
		status, code = http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, service.ErrAlreadyDone):
		status, code = http.StatusConflict, "ALREADY_DONE"
	case errors.Is(err, service.ErrInProgress):
		status, code = http.StatusConflict, "CONFIRMATION_IN_PROGRESS"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	_ = c.Error(err)
	writeError(c, status, code, message, err.Error())
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	return true
}

// actor is set by the auth middleware on every /api route that reaches a handler.
func actor(c *gin.Context) models.Profile {
	p, _ := middleware.Actor(c)
	return p
}

// Me returns the authenticated profile.
// @Summary Current user
// @Tags account
// @Produce json
// @Success 200 {object} models.Profile
// @Router /api/me [get]
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, actor(c))
}
