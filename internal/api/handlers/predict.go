package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"worldcup_sim/internal/prediction"
	"worldcup_sim/internal/tournament"
)

// PredictMatch returns outcome probabilities of a single match.
func (h *Handler) PredictMatch(c *gin.Context) {
	var req prediction.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, err)
		return
	}

	home, err := h.Roster.Canonical(req.HomeTeam)
	if err != nil {
		SendError(c, err)
		return
	}
	away, err := h.Roster.Canonical(req.AwayTeam)
	if err != nil {
		SendError(c, err)
		return
	}

	resp, err := tournament.PredictMatch(c.Request.Context(), h.Predictor, home, away, req.Neutral())
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
