package handlers

import (
	"net/http"

	"sbr_farm/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetContest shows the active contest of :type with its entry count.
func (h *Handler) GetContest(c *gin.Context) {
	t, ok := domain.ParseContestType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown contest type", "kind": "validation_error"})
		return
	}
	pending, err := h.Contests.Pending(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contest": pending})
}
