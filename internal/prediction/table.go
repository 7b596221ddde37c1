// Package prediction is the boundary to the expected-goals model. Everything the
// simulation needs from it is fetched once into an immutable Table.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"worldcup_sim/internal/match"
	"worldcup_sim/internal/models"
)

// Predictor supplies expected goals (λ) for a matchup.
type Predictor interface {
	ExpectedGoals(ctx context.Context, teamA, teamB string, neutral bool) (float64, float64, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, teamA, teamB string, neutral bool) (float64, float64, error)

func (f PredictorFunc) ExpectedGoals(ctx context.Context, teamA, teamB string, neutral bool) (float64, float64, error) {
	return f(ctx, teamA, teamB, neutral)
}

// fetchWorkers bounds the number of concurrent Predictor calls while building a Table.
const fetchWorkers = 8

// Table holds the fixture of every pair of a roster at a neutral venue. It is
// safe for concurrent use and never changes after BuildTable returns.
type Table struct {
	teams    []string
	index    map[string]int
	fixtures []match.Fixture // fixtures[i*n+j] for i < j, seen from teams[i]
}

type pairJob struct {
	i, j int
}

type pairResult struct {
	pairJob
	fixture match.Fixture
	err     error
}

// BuildTable queries p once per unordered pair of teams, in roster order. The
// reverse orientation of a pair is derived by swapping sides.
func BuildTable(ctx context.Context, p Predictor, teams []string) (*Table, error) {
	n := len(teams)
	t := &Table{
		teams:    append([]string(nil), teams...),
		index:    make(map[string]int, n),
		fixtures: make([]match.Fixture, n*n),
	}
	for i, team := range teams {
		if _, dup := t.index[team]; dup {
			return nil, fmt.Errorf("team %q listed twice", team)
		}
		t.index[team] = i
	}
	if n < 2 {
		return t, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan pairJob)
	results := make(chan pairResult)
	var wg sync.WaitGroup
	workers := fetchWorkers
	if pairs := n * (n - 1) / 2; pairs < workers {
		workers = pairs
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				f, err := fetch(ctx, p, teams[job.i], teams[job.j])
				results <- pairResult{pairJob: job, fixture: f, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				select {
				case jobs <- pairJob{i, j}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Report the first failing pair in roster order, independent of scheduling.
	// Pairs aborted by the resulting cancellation only count when nothing else failed.
	var firstErr error
	firstAt := n * n
	for res := range results {
		if res.err == nil {
			t.fixtures[res.i*n+res.j] = res.fixture
			continue
		}
		cancel()
		at := res.i*n + res.j
		if isContextErr(res.err) {
			at += n * n
		}
		if firstErr == nil || at < firstAt {
			firstErr, firstAt = res.err, at
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fetch(ctx context.Context, p Predictor, a, b string) (match.Fixture, error) {
	la, lb, err := p.ExpectedGoals(ctx, a, b, true)
	if err != nil {
		var unknown *models.UnknownTeamError
		switch {
		case errors.As(err, &unknown):
			return match.Fixture{}, err
		case isContextErr(err):
			return match.Fixture{}, err
		}
		return match.Fixture{}, &models.PredictionUnavailableError{TeamA: a, TeamB: b, Err: err}
	}
	f, err := match.NewFixture(la, lb)
	if err != nil {
		return match.Fixture{}, fmt.Errorf("%s vs %s: %w", a, b, err)
	}
	return f, nil
}

// Fixture returns the matchup seen from a.
func (t *Table) Fixture(a, b string) (match.Fixture, error) {
	i, ok := t.index[a]
	if !ok {
		return match.Fixture{}, &models.UnknownTeamError{Team: a}
	}
	j, ok := t.index[b]
	if !ok {
		return match.Fixture{}, &models.UnknownTeamError{Team: b}
	}
	switch {
	case i < j:
		return t.fixtures[i*len(t.teams)+j], nil
	case i > j:
		return t.fixtures[j*len(t.teams)+i].Swap(), nil
	}
	return match.Fixture{}, fmt.Errorf("%s cannot play itself", a)
}

// Teams returns the roster the table was built for.
func (t *Table) Teams() []string {
	return append([]string(nil), t.teams...)
}
