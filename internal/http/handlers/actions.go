package handlers

import (
	"net/http"

	"sbr_farm/internal/action"

	"github.com/gin-gonic/gin"
)

// PostAction runs one JSON-encoded action for the caller.
func (h *Handler) PostAction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var a action.Action
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation_error"})
		return
	}
	h.dispatch(c, userID, a)
}

type CallbackRequest struct {
	Data string `json:"data" binding:"required"`
}

// PostCallback decodes chat callback data ("harvest_14") and runs it.
func (h *Handler) PostCallback(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "kind": "validation_error"})
		return
	}
	a, err := action.ParseCallback(req.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	h.dispatch(c, userID, a)
}

func (h *Handler) dispatch(c *gin.Context, userID int64, a action.Action) {
	res, err := h.Actions.Dispatch(c.Request.Context(), userID, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": a.Kind, "result": res})
}
