package tournament

import (
	"context"
	"errors"
	"fmt"

	"worldcup_sim/internal/match"
	"worldcup_sim/internal/models"
	"worldcup_sim/internal/prediction"
)

// PredictMatch returns the closed-form outcome probabilities of one match,
// together with the expected goals they were computed from.
func PredictMatch(ctx context.Context, p prediction.Predictor, home, away string, neutral bool) (*prediction.PredictResponse, error) {
	if home == away {
		return nil, fmt.Errorf("%w: %s cannot play itself", models.ErrValidation, home)
	}
	lh, la, err := p.ExpectedGoals(ctx, home, away, neutral)
	if err != nil {
		var unknown *models.UnknownTeamError
		if errors.As(err, &unknown) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &models.PredictionUnavailableError{TeamA: home, TeamB: away, Err: err}
	}
	odds, err := match.Probabilities(lh, la)
	if err != nil {
		return nil, err
	}
	return &prediction.PredictResponse{
		HomeTeam:          home,
		AwayTeam:          away,
		HomeWinProb:       odds.WinA,
		DrawProb:          odds.Draw,
		AwayWinProb:       odds.WinB,
		ExpectedHomeGoals: lh,
		ExpectedAwayGoals: la,
	}, nil
}
