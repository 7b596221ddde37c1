package prediction

import (
	"context"
	"fmt"
	"math"

	"worldcup_sim/internal/models"
)

// Defaults of the in-process Elo goal model.
const (
	DefaultGoalBase  = 1.35
	DefaultGoalScale = 1000.0
	// MinLambda is the smallest expected-goals value the model ever returns.
	MinLambda = 0.1
)

// EloConfig tunes the mapping from rating difference to expected goals.
type EloConfig struct {
	// GoalBase is λ for two equally rated sides.
	GoalBase float64
	// GoalScale is the rating difference that multiplies λ by 10.
	GoalScale float64
	// HomeAdvantage is added to the first team's rating when the venue is not neutral.
	HomeAdvantage float64
}

// EloModel derives expected goals from Elo ratings:
// λ_a = GoalBase · 10^((r_a − r_b)/GoalScale), λ_b the mirror image, both floored at MinLambda.
type EloModel struct {
	ratings map[string]float64
	cfg     EloConfig
}

// NewEloModel copies ratings; zero config fields take the defaults.
func NewEloModel(ratings map[string]float64, cfg EloConfig) (*EloModel, error) {
	if cfg.GoalBase == 0 {
		cfg.GoalBase = DefaultGoalBase
	}
	if cfg.GoalScale == 0 {
		cfg.GoalScale = DefaultGoalScale
	}
	if cfg.GoalBase < 0 || math.IsNaN(cfg.GoalBase) || math.IsInf(cfg.GoalBase, 0) {
		return nil, &models.InvalidParameterError{Param: "goal_base", Value: cfg.GoalBase}
	}
	if cfg.GoalScale < 0 || math.IsNaN(cfg.GoalScale) || math.IsInf(cfg.GoalScale, 0) {
		return nil, &models.InvalidParameterError{Param: "goal_scale", Value: cfg.GoalScale}
	}
	if math.IsNaN(cfg.HomeAdvantage) || math.IsInf(cfg.HomeAdvantage, 0) {
		return nil, &models.InvalidParameterError{Param: "home_advantage", Value: cfg.HomeAdvantage}
	}
	r := make(map[string]float64, len(ratings))
	for team, rating := range ratings {
		if math.IsNaN(rating) || math.IsInf(rating, 0) {
			return nil, fmt.Errorf("rating of %s: %w", team, &models.InvalidParameterError{Param: "elo", Value: rating})
		}
		r[team] = rating
	}
	return &EloModel{ratings: r, cfg: cfg}, nil
}

// Rating returns the rating of a team.
func (m *EloModel) Rating(team string) (float64, bool) {
	r, ok := m.ratings[team]
	return r, ok
}

// ExpectedGoals implements Predictor.
func (m *EloModel) ExpectedGoals(_ context.Context, teamA, teamB string, neutral bool) (float64, float64, error) {
	ra, ok := m.ratings[teamA]
	if !ok {
		return 0, 0, &models.UnknownTeamError{Team: teamA}
	}
	rb, ok := m.ratings[teamB]
	if !ok {
		return 0, 0, &models.UnknownTeamError{Team: teamB}
	}
	diff := ra - rb
	if !neutral {
		diff += m.cfg.HomeAdvantage
	}
	la := m.cfg.GoalBase * math.Pow(10, diff/m.cfg.GoalScale)
	lb := m.cfg.GoalBase * math.Pow(10, -diff/m.cfg.GoalScale)
	return math.Max(MinLambda, la), math.Max(MinLambda, lb), nil
}
