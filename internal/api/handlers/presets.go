package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"worldcup_sim/internal/models"
	"worldcup_sim/internal/tournament"
)

// PresetResponse is a preset draw with its simulated outcome.
type PresetResponse struct {
	ID            string                            `json:"id"`
	Name          string                            `json:"name"`
	Format        string                            `json:"format"`
	Groups        map[string][]string               `json:"groups"`
	Champions     map[string]int                    `json:"champions"`
	Finalists     map[string]int                    `json:"finalists"`
	Semifinalists map[string]int                    `json:"semifinalists"`
	GroupResults  map[string][]models.GroupStanding `json:"group_results"`
	Bracket       *models.Bracket                   `json:"bracket"`
	Metadata      PresetMetadata                    `json:"metadata"`
}

// PresetMetadata tells how a preset result was produced.
type PresetMetadata struct {
	SimulationID string `json:"simulation_id"`
	NSims        int    `json:"n_sims"`
	Seed         int64  `json:"seed"`
}

// ListPresets lists the available presets.
func (h *Handler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": h.Presets.List()})
}

// GetPreset simulates a preset draw with its fixed seed.
func (h *Handler) GetPreset(c *gin.Context) {
	p, err := h.Presets.Get(c.Param("name"))
	if err != nil {
		SendError(c, err)
		return
	}

	req := tournament.Request{
		Format:         p.Format,
		Groups:         p.Groups,
		NumSimulations: h.DefaultSimulations,
		Seed:           p.Seed,
	}
	res, err := h.run(c.Request.Context(), c, req)
	if err != nil {
		SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, PresetResponse{
		ID:            p.ID,
		Name:          p.Name,
		Format:        p.Format,
		Groups:        p.Groups,
		Champions:     res.Champions,
		Finalists:     res.Finalists,
		Semifinalists: res.Semifinalists,
		GroupResults:  res.GroupResults,
		Bracket:       res.Bracket,
		Metadata: PresetMetadata{
			SimulationID: res.ID,
			NSims:        res.NumSimulations,
			Seed:         res.Seed,
		},
	})
}
