package handlers

import (
	"net/http"
	"strconv"
	"time"

	"sbr_farm/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// player tokens minted by CreateUser
const playerTokenTTL = 30 * 24 * time.Hour

func actor(c *gin.Context) string {
	id, _ := getUserID(c)
	return "admin:" + strconv.FormatInt(id, 10)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id", "kind": "validation_error"})
		return 0, false
	}
	return id, true
}

type CreateUserRequest struct {
	TgID      int64  `json:"tg_id" binding:"required"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// CreateUser registers a chat user (or returns the existing one) and mints a
// player token for the front end.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation_error"})
		return
	}

	u, created, err := h.Players.Register(c.Request.Context(), req.TgID, req.Username, req.FirstName)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.Tokens.Generate(u.ID, "", playerTokenTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"user": u, "created": created, "token": token})
}

// FindUser looks a user up by internal id or chat id.
func (h *AdminHandler) FindUser(c *gin.Context) {
	u, err := h.Admin.FindUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

type AdjustRequest struct {
	Resource domain.Resource `json:"resource" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

// AdjustResource credits (amount > 0) or debits (amount < 0) a balance.
func (h *AdminHandler) AdjustResource(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation_error"})
		return
	}

	bal, err := h.Admin.AdjustResource(c.Request.Context(), actor(c), id, req.Resource, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": req.Resource, "balance": bal})
}

type SetVIPRequest struct {
	Tier      int        `json:"tier"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *AdminHandler) SetVipTier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req SetVIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation_error"})
		return
	}

	u, err := h.Admin.SetVipTier(c.Request.Context(), actor(c), id, req.Tier, req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AdminHandler) PendingPayments(c *gin.Context) {
	payments, err := h.Admin.PendingPayments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *AdminHandler) ApprovePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.Admin.ApprovePayment(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminHandler) RejectPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RejectRequest
	// body is optional
	_ = c.ShouldBindJSON(&req)

	p, err := h.Admin.RejectPayment(c.Request.Context(), actor(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.Admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": st})
}

func (h *AdminHandler) AuditLog(c *gin.Context) {
	logs, err := h.Admin.AuditLog(c.Request.Context(), queryLimit(c, 50, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": logs})
}

func (h *AdminHandler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.Loop.Jobs()})
}

// RunJob runs a scheduler job synchronously and returns its report.
func (h *AdminHandler) RunJob(c *gin.Context) {
	report, err := h.Loop.RunNow(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": c.Param("name"), "report": report})
}
