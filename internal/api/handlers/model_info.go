package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetModelInfo describes the goal model and the simulation method.
func (h *Handler) GetModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"model": h.Model,
		"simulation": gin.H{
			"method":              "Poisson-based Monte Carlo",
			"description":         "Expected goals become the Poisson lambda of each side; whole tournaments are replayed n_sims times",
			"knockout_draws":      "resolved in proportion to the sides' win probabilities",
			"prng":                h.PRNG,
			"default_simulations": h.DefaultSimulations,
			"max_simulations":     h.Simulator.MaxSimulations(),
		},
		"formats": h.Simulator.Formats().Names(),
		"coverage": gin.H{
			"teams_available": h.Roster.Len(),
		},
	})
}
