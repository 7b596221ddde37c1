package handlers

import (
	"github.com/sirupsen/logrus"

	"worldcup_sim/internal/cache"
	"worldcup_sim/internal/logger"
	"worldcup_sim/internal/metrics"
	"worldcup_sim/internal/prediction"
	"worldcup_sim/internal/presets"
	"worldcup_sim/internal/teams"
	"worldcup_sim/internal/tournament"
)

// ModelInfo describes the goal model behind the service.
type ModelInfo struct {
	// Key identifies the model and its parameters in cache keys.
	Key        string                 `json:"-"`
	Type       string                 `json:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Deps are the collaborators of Handler. Cache and Metrics may be nil.
type Deps struct {
	Simulator          *tournament.Simulator
	Predictor          prediction.Predictor
	Roster             *teams.Roster
	Presets            *presets.Store
	Cache              *cache.SimulationCache
	Metrics            *metrics.Collector
	Logger             *logrus.Logger
	Model              ModelInfo
	DefaultSimulations int
	PRNG               string
}

// Handler serves the simulation API.
type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = logger.GetLogger()
	}
	if d.DefaultSimulations <= 0 {
		d.DefaultSimulations = 100
	}
	return &Handler{Deps: d}
}
