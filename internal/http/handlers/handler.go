package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"sbr_farm/internal/action"
	"sbr_farm/internal/domain"
	"sbr_farm/internal/http/middleware"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/scheduler"
	"sbr_farm/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler serves the player API on top of the services.
type Handler struct {
	Actions  *action.Dispatcher
	Players  *service.Players
	Crops    *service.Crops
	Ledger   *service.Ledger
	Inv      *service.Inventory
	VIP      *service.VIP
	Contests *service.Contests
	Payments *service.Payments
}

// AdminHandler serves /admin. Loop is used for manual job runs even when
// the scheduler itself is not started.
type AdminHandler struct {
	Admin   *service.Admin
	Players *service.Players
	Tokens  *service.Tokens
	Loop    *scheduler.Loop
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (int64, bool) {
	return middleware.UserID(c)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientResource), errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error", "kind"}. Store and unknown failures are
// logged and their message is not sent to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	kind := domain.KindOf(err)
	msg := err.Error()
	if status >= 500 {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "kind", kind, "error", err)
		msg = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

// queryLimit reads ?limit=, clamped to [1, upper].
func queryLimit(c *gin.Context, def, upper int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}
