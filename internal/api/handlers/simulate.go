package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"worldcup_sim/internal/cache"
	"worldcup_sim/internal/models"
	"worldcup_sim/internal/tournament"
)

// SimulateRequest is the body of POST /api/simulate. Format may be left out
// when the group count identifies it.
type SimulateRequest struct {
	Groups map[string][]string `json:"groups" binding:"required"`
	Format string              `json:"format"`
	NSims  *int                `json:"n_sims"`
	Seed   int64               `json:"seed"`
}

// Simulate runs a full tournament simulation for a custom draw.
func (h *Handler) Simulate(c *gin.Context) {
	var body SimulateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBadRequest(c, err)
		return
	}

	req, err := h.toRequest(body)
	if err != nil {
		SendError(c, err)
		return
	}

	res, err := h.run(c.Request.Context(), c, req)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// toRequest normalizes group labels and team names.
func (h *Handler) toRequest(body SimulateRequest) (tournament.Request, error) {
	groups := make(map[string][]string, len(body.Groups))
	for raw, names := range body.Groups {
		label := groupLabel(raw)
		if _, dup := groups[label]; dup {
			return tournament.Request{}, fmt.Errorf("%w: group %s given twice", models.ErrValidation, label)
		}
		canonical := make([]string, len(names))
		for i, name := range names {
			team, err := h.Roster.Canonical(name)
			if err != nil {
				return tournament.Request{}, err
			}
			canonical[i] = team
		}
		groups[label] = canonical
	}

	format := body.Format
	if format == "" {
		if f, ok := h.Simulator.Formats().ForGroupCount(len(groups)); ok {
			format = f.Name
		}
	}
	n := h.DefaultSimulations
	if body.NSims != nil {
		n = *body.NSims
	}
	return tournament.Request{Format: format, Groups: groups, NumSimulations: n, Seed: body.Seed}, nil
}

// groupLabel turns "Group A" or " a " into "A".
func groupLabel(raw string) string {
	label := strings.TrimSpace(raw)
	if len(label) > 6 && strings.EqualFold(label[:6], "group ") {
		label = strings.TrimSpace(label[6:])
	}
	return strings.ToUpper(label)
}

// run serves a seeded request from the cache when possible.
func (h *Handler) run(ctx context.Context, c *gin.Context, req tournament.Request) (*tournament.Result, error) {
	if _, _, err := h.Simulator.Validate(req); err != nil {
		return nil, err
	}

	key, cacheable := cache.Key(h.Model.Key+"|"+h.PRNG, req)
	cacheable = cacheable && h.Cache.Enabled()
	if cacheable {
		res, hit := h.Cache.Get(ctx, key)
		if h.Metrics != nil {
			h.Metrics.RecordCache(hit)
		}
		if hit {
			c.Header("X-Cache", "HIT")
			return res, nil
		}
		c.Header("X-Cache", "MISS")
	}

	res, err := h.Simulator.Simulate(ctx, req, h.Predictor)
	if err != nil {
		return nil, err
	}
	if cacheable {
		// A failed write only costs a later recomputation.
		_ = h.Cache.Set(ctx, key, res)
	}
	return res, nil
}
