package handlers

import (
	"errors"
	"net/http"
	"time"

	"sbr_farm/internal/clock"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/service"
	"sbr_farm/internal/telegram"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges Telegram WebApp initData for a player token.
type AuthHandler struct {
	Players  *service.Players
	Tokens   *service.Tokens
	Clock    clock.Clock
	BotToken string
	// how long signed initData stays acceptable
	MaxAge   time.Duration
	TokenTTL time.Duration
}

type telegramLoginRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// TelegramLogin registers the player on first sight and returns a token.
func (h *AuthHandler) TelegramLogin(c *gin.Context) {
	var req telegramLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data required"})
		return
	}

	tgUser, err := telegram.Verify(req.InitData, h.BotToken, h.Clock.Now(), h.MaxAge)
	if err != nil {
		if errors.Is(err, telegram.ErrInitData) {
			logger.WithContext(c.Request.Context()).Info("telegram login rejected", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or stale telegram data"})
			return
		}
		respondError(c, err)
		return
	}

	user, created, err := h.Players.Register(c.Request.Context(), tgUser.ID, tgUser.Username, tgUser.FirstName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.Tokens.Generate(user.ID, "", h.TokenTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"created": created,
		"user": gin.H{
			"id":         user.ID,
			"tg_id":      user.TgID,
			"username":   user.Username,
			"first_name": user.FirstName,
		},
	})
}
