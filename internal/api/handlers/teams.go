package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTeams lists the roster, strongest team first.
func (h *Handler) GetTeams(c *gin.Context) {
	c.JSON(http.StatusOK, h.Roster.Teams())
}
