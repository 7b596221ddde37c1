// Package group resolves a four-team round-robin group into a totally ordered table.
package group

import (
	"fmt"
	"sort"

	"worldcup_sim/internal/match"
	"worldcup_sim/internal/models"
	"worldcup_sim/internal/rng"
)

// Points awarded per result.
const (
	WinPoints  = 3
	DrawPoints = 1
)

// Fixtures resolves the matchup between two teams, seen from a.
type Fixtures interface {
	Fixture(a, b string) (match.Fixture, error)
}

// Play decides one group fixture. Points follow Winner; goals follow GoalsA/GoalsB.
type Play func(a, b string) (models.MatchResult, error)

// Simulate samples every fixture of the group once and returns the ranked table.
func Simulate(label string, teams []string, fx Fixtures, r rng.Source) ([]models.GroupStanding, error) {
	standings, _, err := Resolve(label, teams, func(a, b string) (models.MatchResult, error) {
		f, err := fx.Fixture(a, b)
		if err != nil {
			return models.MatchResult{}, err
		}
		ga, gb := f.SampleGoals(r)
		return sampled(a, b, ga, gb, f.Odds), nil
	})
	return standings, err
}

// Predict resolves the group by taking the most likely outcome of every fixture.
// Goals credited are the expected goals.
func Predict(label string, teams []string, fx Fixtures) ([]models.GroupStanding, []models.MatchResult, error) {
	return Resolve(label, teams, func(a, b string) (models.MatchResult, error) {
		f, err := fx.Fixture(a, b)
		if err != nil {
			return models.MatchResult{}, err
		}
		return predicted(a, b, f), nil
	})
}

// Resolve plays the six pairings (i < j, in input order) and ranks the group.
func Resolve(label string, teams []string, play Play) ([]models.GroupStanding, []models.MatchResult, error) {
	if len(teams) != models.GroupSize {
		return nil, nil, &models.GroupSizeError{Group: label, Size: len(teams)}
	}
	table := make([]models.GroupStanding, len(teams))
	index := make(map[string]int, len(teams))
	for i, t := range teams {
		if _, dup := index[t]; dup {
			return nil, nil, &models.DuplicateTeamError{Team: t, Group: label}
		}
		index[t] = i
		table[i] = models.GroupStanding{Team: t, Order: i}
	}

	results := make([]models.MatchResult, 0, len(teams)*(len(teams)-1)/2)
	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			m, err := play(teams[i], teams[j])
			if err != nil {
				return nil, nil, fmt.Errorf("group %s: %s vs %s: %w", label, teams[i], teams[j], err)
			}
			record(&table[i], &table[j], m)
			results = append(results, m)
		}
	}

	Rank(table)
	return table, results, nil
}

// Rank sorts standings best first and assigns 0-based ranks.
func Rank(table []models.GroupStanding) {
	sort.Slice(table, func(i, j int) bool { return Compare(table[i], table[j]) < 0 })
	for i := range table {
		table[i].Rank = i
	}
}

// Compare orders standings by points, goal difference and goals scored (all
// descending), then by Order. It returns 0 only when Order is equal too.
func Compare(a, b models.GroupStanding) int {
	switch {
	case a.Points != b.Points:
		return cmpDesc(float64(a.Points), float64(b.Points))
	case a.GoalDifference != b.GoalDifference:
		return cmpDesc(a.GoalDifference, b.GoalDifference)
	case a.GoalsFor != b.GoalsFor:
		return cmpDesc(a.GoalsFor, b.GoalsFor)
	case a.Order != b.Order:
		if a.Order < b.Order {
			return -1
		}
		return 1
	}
	return 0
}

func cmpDesc(a, b float64) int {
	if a > b {
		return -1
	}
	return 1
}

func record(a, b *models.GroupStanding, m models.MatchResult) {
	a.GoalsFor += m.GoalsA
	a.GoalsAgainst += m.GoalsB
	b.GoalsFor += m.GoalsB
	b.GoalsAgainst += m.GoalsA
	a.GoalDifference = a.GoalsFor - a.GoalsAgainst
	b.GoalDifference = b.GoalsFor - b.GoalsAgainst

	switch m.Winner {
	case a.Team:
		a.Points += WinPoints
	case b.Team:
		b.Points += WinPoints
	default:
		a.Points += DrawPoints
		b.Points += DrawPoints
	}
}

func sampled(a, b string, ga, gb int, o match.Odds) models.MatchResult {
	m := models.MatchResult{TeamA: a, TeamB: b, GoalsA: float64(ga), GoalsB: float64(gb)}
	switch {
	case ga > gb:
		m.Winner, m.WinProb = a, o.WinA
	case gb > ga:
		m.Winner, m.WinProb = b, o.WinB
	default:
		m.Winner, m.WinProb = models.Draw, o.Draw
	}
	return m
}

// predicted picks the draw only when it is strictly the most likely outcome.
func predicted(a, b string, f match.Fixture) models.MatchResult {
	o := f.Odds
	m := models.MatchResult{TeamA: a, TeamB: b, GoalsA: f.LambdaA, GoalsB: f.LambdaB}
	switch {
	case o.Draw > o.WinA && o.Draw > o.WinB:
		m.Winner, m.WinProb = models.Draw, o.Draw
	case f.FavoursA():
		m.Winner, m.WinProb = a, o.WinA
	default:
		m.Winner, m.WinProb = b, o.WinB
	}
	return m
}
