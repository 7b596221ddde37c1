// Package bracket seeds the knockout stage from group tables and plays it out
// round by round until a champion remains.
package bracket

import (
	"fmt"
	"sort"

	"worldcup_sim/internal/group"
	"worldcup_sim/internal/models"
	"worldcup_sim/internal/rng"
)

// Decide settles one knockout match. The returned Winner must be a or b.
type Decide func(a, b string) (models.MatchResult, error)

// SelectBestThirds ranks the third-placed team of every group with the group
// comparator and keeps the best f.BestThirds. Ties left after points, goal
// difference and goals scored go to the earlier group label in the format.
func SelectBestThirds(f *Format, standings map[string][]models.GroupStanding) ([]models.GroupStanding, error) {
	if f.BestThirds == 0 {
		return nil, nil
	}
	thirds := make([]models.GroupStanding, 0, len(f.Groups))
	for i, g := range f.Groups {
		table, ok := standings[g]
		if !ok || len(table) < 3 {
			return nil, &models.FormatError{Format: f.Name, Reason: fmt.Sprintf("no third place in group %s", g)}
		}
		third := table[2]
		third.Order = i
		thirds = append(thirds, third)
	}
	sort.Slice(thirds, func(i, j int) bool { return group.Compare(thirds[i], thirds[j]) < 0 })
	best := thirds[:f.BestThirds]
	for i := range best {
		best[i].Rank = i
	}
	return best, nil
}

// Seed lays out the teams of the first knockout round in bracket order: the two
// sides of match i are seeded[2i] and seeded[2i+1]. f must have passed Validate.
func Seed(f *Format, standings map[string][]models.GroupStanding) ([]string, error) {
	if f.slots == nil {
		return nil, &models.FormatError{Format: f.Name, Reason: "format not validated"}
	}
	thirds, err := SelectBestThirds(f, standings)
	if err != nil {
		return nil, err
	}

	seeded := make([]string, 0, f.Size())
	for _, pair := range f.slots {
		for _, s := range pair {
			if s.third >= 0 {
				seeded = append(seeded, thirds[s.third].Team)
				continue
			}
			table := standings[s.group]
			if s.rank >= len(table) {
				return nil, &models.FormatError{
					Format: f.Name,
					Reason: fmt.Sprintf("group %s has no position %d", s.group, s.rank+1),
				}
			}
			seeded = append(seeded, table[s.rank].Team)
		}
	}
	return seeded, nil
}

// Simulate plays every knockout match by sampling regular time, settling a level
// score on relative strength.
func Simulate(f *Format, seeded []string, fx group.Fixtures, r rng.Source) (*models.Bracket, error) {
	return Resolve(f, seeded, func(a, b string) (models.MatchResult, error) {
		fixture, err := fx.Fixture(a, b)
		if err != nil {
			return models.MatchResult{}, err
		}
		aWins, ga, gb := fixture.SampleKnockout(r)
		m := models.MatchResult{TeamA: a, TeamB: b, GoalsA: float64(ga), GoalsB: float64(gb)}
		setWinner(&m, aWins, fixture.Odds.WinA, fixture.Odds.WinB, fixture.Odds.AdvanceA())
		return m, nil
	})
}

// Predict advances the favourite of every knockout match. Goals shown are the
// expected goals.
func Predict(f *Format, seeded []string, fx group.Fixtures) (*models.Bracket, error) {
	return Resolve(f, seeded, func(a, b string) (models.MatchResult, error) {
		fixture, err := fx.Fixture(a, b)
		if err != nil {
			return models.MatchResult{}, err
		}
		m := models.MatchResult{TeamA: a, TeamB: b, GoalsA: fixture.LambdaA, GoalsB: fixture.LambdaB}
		setWinner(&m, fixture.FavoursA(), fixture.Odds.WinA, fixture.Odds.WinB, fixture.Odds.AdvanceA())
		return m, nil
	})
}

func setWinner(m *models.MatchResult, aWins bool, winA, winB, advanceA float64) {
	if aWins {
		m.Winner, m.WinProb, m.AdvanceProb = m.TeamA, winA, advanceA
		return
	}
	m.Winner, m.WinProb, m.AdvanceProb = m.TeamB, winB, 1-advanceA
}

// Resolve runs the rounds of f over the seeded teams. Round r+1 pairs the winners
// of matches 2i and 2i+1 of round r.
func Resolve(f *Format, seeded []string, decide Decide) (*models.Bracket, error) {
	if len(seeded) != f.Size() {
		return nil, &models.SeedingMismatchError{Format: f.Name, Expected: f.Size(), Got: len(seeded)}
	}

	b := &models.Bracket{Format: f.Name, Rounds: make([]models.Round, 0, len(f.Rounds))}
	current := seeded
	for _, rs := range f.Rounds {
		if len(current) < 2 || len(current)%2 != 0 {
			return nil, &models.SeedingMismatchError{Format: f.Name, Expected: 2, Got: len(current)}
		}
		round := models.Round{Key: rs.Key, Name: rs.Name, Matches: make([]models.MatchResult, 0, len(current)/2)}
		next := make([]string, 0, len(current)/2)
		for i := 0; i < len(current); i += 2 {
			a, bTeam := current[i], current[i+1]
			m, err := decide(a, bTeam)
			if err != nil {
				return nil, fmt.Errorf("%s: %s vs %s: %w", rs.Name, a, bTeam, err)
			}
			if m.Winner != a && m.Winner != bTeam {
				return nil, fmt.Errorf("%s: %s vs %s: winner %q is not in the match", rs.Name, a, bTeam, m.Winner)
			}
			round.Matches = append(round.Matches, m)
			next = append(next, m.Winner)
		}
		b.Rounds = append(b.Rounds, round)
		current = next
	}
	if len(current) != 1 {
		return nil, &models.SeedingMismatchError{Format: f.Name, Expected: 1, Got: len(current)}
	}
	b.Champion = current[0]
	return b, nil
}
