package handlers

import (
	"net/http"

	"sbr_farm/internal/domain"

	"github.com/gin-gonic/gin"
)

// RequestWithdrawal files a withdrawal for admin review. The currency follows
// from the method.
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req domain.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation_error"})
		return
	}
	currency, ok := req.Method.Currency()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method", "kind": "validation_error"})
		return
	}

	p, err := h.Payments.RequestWithdrawal(c.Request.Context(), userID, currency, req.Amount, req.Method, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": p})
}

// RecordDeposit registers an externally sent deposit by its tx hash.
func (h *Handler) RecordDeposit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req domain.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation_error"})
		return
	}
	currency, ok := req.Method.Currency()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method", "kind": "validation_error"})
		return
	}

	p, err := h.Payments.RecordDeposit(c.Request.Context(), userID, currency, req.Amount, req.Method, req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": p})
}

func (h *Handler) MyPayments(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	payments, err := h.Payments.History(c.Request.Context(), userID, queryLimit(c, 20, 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
