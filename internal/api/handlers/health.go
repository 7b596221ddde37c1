package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetRoot answers the liveness probe at "/".
func (h *Handler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "World Cup Simulation API",
	})
}

// GetHealth returns basic health status
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"time":      time.Now().UTC(),
		"service":   "worldcup-sim",
		"teams":     h.Roster.Len(),
		"formats":   h.Simulator.Formats().Names(),
		"cache":     h.Cache.Enabled(),
		"predictor": h.Model.Type,
	})
}
