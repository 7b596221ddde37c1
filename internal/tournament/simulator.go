// Package tournament runs the Monte Carlo simulation of a whole tournament:
// many independent trials of groups plus knockout stage, reduced into counts,
// and one deterministic most-likely run for display.
package tournament

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"worldcup_sim/internal/bracket"
	"worldcup_sim/internal/group"
	"worldcup_sim/internal/logger"
	"worldcup_sim/internal/models"
	"worldcup_sim/internal/prediction"
	"worldcup_sim/internal/rng"
)

const (
	// DefaultMaxSimulations caps n_sims when Options.MaxSimulations is zero.
	DefaultMaxSimulations = 100_000
	// cancelCheckEvery is how many trials a worker runs between context checks.
	cancelCheckEvery = 64
)

// Request describes one simulation run.
type Request struct {
	Format         string              `json:"format"`
	Groups         map[string][]string `json:"groups"`
	NumSimulations int                 `json:"n_sims"`
	// Seed fixes the random streams; 0 picks the simulator default.
	Seed int64 `json:"seed,omitempty"`
}

// Result is the outcome of a simulation run. Counts are keyed by team name and
// probabilities are count / NumSimulations.
type Result struct {
	ID             string                            `json:"id"`
	Format         string                            `json:"format"`
	Seed           int64                             `json:"seed"`
	NumSimulations int                               `json:"n_sims"`
	Champions      map[string]int                    `json:"champions"`
	Finalists      map[string]int                    `json:"finalists"`
	Semifinalists  map[string]int                    `json:"semifinalists"`
	GroupResults   map[string][]models.GroupStanding `json:"group_results"`
	GroupMatches   map[string][]models.MatchResult   `json:"group_matches"`
	Bracket        *models.Bracket                   `json:"bracket"`
	ElapsedMillis  int64                             `json:"elapsed_ms"`
}

// Accumulator rebuilds the counts of the result.
func (r *Result) Accumulator() *Accumulator {
	return &Accumulator{
		Champions:     r.Champions,
		Finalists:     r.Finalists,
		Semifinalists: r.Semifinalists,
		N:             r.NumSimulations,
	}
}

// Observer is told about every finished run.
type Observer interface {
	ObserveRun(format string, nSims int, elapsed time.Duration, err error)
}

// Options configures a Simulator. Zero values pick the defaults.
type Options struct {
	Workers        int
	MaxSimulations int
	Timeout        time.Duration
	// Seed is used when a request carries none; 0 seeds from the clock.
	Seed     int64
	PRNG     rng.Factory
	Logger   *logrus.Logger
	Observer Observer
}

// Simulator runs tournaments for the formats of a registry.
type Simulator struct {
	formats *bracket.Registry
	opts    Options
}

// New creates a simulator.
func New(formats *bracket.Registry, opts Options) *Simulator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxSimulations <= 0 {
		opts.MaxSimulations = DefaultMaxSimulations
	}
	if opts.PRNG == nil {
		opts.PRNG, _ = rng.NewFactory(rng.Xorshift)
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Simulator{formats: formats, opts: opts}
}

// Formats returns the registry the simulator resolves format names with.
func (s *Simulator) Formats() *bracket.Registry { return s.formats }

// MaxSimulations is the largest accepted n_sims.
func (s *Simulator) MaxSimulations() int { return s.opts.MaxSimulations }

// Validate checks a request without running it and returns its format and the
// groups in the format's label order.
func (s *Simulator) Validate(req Request) (*bracket.Format, [][]string, error) {
	f, err := s.formats.Get(req.Format)
	if err != nil {
		return nil, nil, err
	}
	if err := f.CheckGroups(req.Groups); err != nil {
		return nil, nil, err
	}
	groups := make([][]string, len(f.Groups))
	seen := make(map[string]string)
	for i, label := range f.Groups {
		teams := req.Groups[label]
		if len(teams) != models.GroupSize {
			return nil, nil, &models.GroupSizeError{Group: label, Size: len(teams)}
		}
		for _, t := range teams {
			if _, dup := seen[t]; dup {
				return nil, nil, &models.DuplicateTeamError{Team: t, Group: label}
			}
			seen[t] = label
		}
		groups[i] = teams
	}
	if req.NumSimulations <= 0 || req.NumSimulations > s.opts.MaxSimulations {
		return nil, nil, &models.RangeError{Param: "n_sims", Value: req.NumSimulations, Min: 1, Max: s.opts.MaxSimulations}
	}
	return f, groups, nil
}

// Simulate validates the request, fetches every λ from p once, then runs
// req.NumSimulations trials across the worker pool. It returns either the
// full result or an error, never partial counts.
func (s *Simulator) Simulate(ctx context.Context, req Request, p prediction.Predictor) (*Result, error) {
	start := time.Now()
	res, err := s.simulate(ctx, req, p)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveRun(req.Format, req.NumSimulations, time.Since(start), err)
	}
	return res, err
}

func (s *Simulator) simulate(ctx context.Context, req Request, p prediction.Predictor) (*Result, error) {
	start := time.Now()
	f, groups, err := s.Validate(req)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	seed := req.Seed
	if seed == 0 {
		seed = s.opts.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log := logger.WithSimulation(s.opts.Logger, id, f.Name)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	roster := make([]string, 0, len(groups)*models.GroupSize)
	for _, g := range groups {
		roster = append(roster, g...)
	}
	table, err := prediction.BuildTable(ctx, p, roster)
	if err != nil {
		return nil, err
	}

	t := &trial{format: f, groups: groups, fixtures: table}
	acc, err := s.run(ctx, log, t, req.NumSimulations, seed)
	if err != nil {
		log.WithError(err).Warn("Simulation aborted")
		return nil, fmt.Errorf("simulation %s: %w", id, err)
	}

	standings, matches, b, err := t.predict()
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	log.WithFields(logrus.Fields{
		"n_sims":   req.NumSimulations,
		"workers":  s.workers(req.NumSimulations),
		"seed":     seed,
		"duration": elapsed.String(),
		"champion": b.Champion,
	}).Info("Simulation completed")

	return &Result{
		ID:             id,
		Format:         f.Name,
		Seed:           seed,
		NumSimulations: acc.N,
		Champions:      acc.Champions,
		Finalists:      acc.Finalists,
		Semifinalists:  acc.Semifinalists,
		GroupResults:   standings,
		GroupMatches:   matches,
		Bracket:        b,
		ElapsedMillis:  elapsed.Milliseconds(),
	}, nil
}

func (s *Simulator) workers(n int) int {
	if s.opts.Workers > n {
		return n
	}
	return s.opts.Workers
}

type workerResult struct {
	acc *Accumulator
	err error
}

// run splits the trials into contiguous ranges, one per worker. Trial i always
// uses the stream seeded with DeriveSeed(seed, i), so the merged counts do not
// depend on the number of workers.
func (s *Simulator) run(ctx context.Context, log *logrus.Entry, t *trial, n int, seed int64) (*Accumulator, error) {
	numWorkers := s.workers(n)
	simsPerWorker := n / numWorkers
	remainingSims := n % numWorkers
	resultsChan := make(chan workerResult, numWorkers)
	var wg sync.WaitGroup

	first := 0
	for w := 0; w < numWorkers; w++ {
		count := simsPerWorker
		if w < remainingSims {
			count++
		}
		wg.Add(1)
		go func(workerID, from, count int) {
			defer wg.Done()
			local := NewAccumulator()
			for i := from; i < from+count; i++ {
				if (i-from)%cancelCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						resultsChan <- workerResult{err: err}
						return
					}
				}
				b, err := t.run(s.opts.PRNG(rng.DeriveSeed(seed, i)))
				if err != nil {
					resultsChan <- workerResult{err: fmt.Errorf("trial %d: %w", i, err)}
					return
				}
				local.Add(b)
			}
			log.WithFields(logrus.Fields{"worker": workerID, "trials": count}).Debug("Worker finished")
			resultsChan <- workerResult{acc: local}
		}(w, first, count)
		first += count
	}

	wg.Wait()
	close(resultsChan)

	total := NewAccumulator()
	var firstErr error
	for r := range resultsChan {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		total.Merge(r.acc)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	// A deadline that passed during the last batch still invalidates the run.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return total, nil
}

// trial holds the immutable inputs shared by every trial of a run.
type trial struct {
	format   *bracket.Format
	groups   [][]string
	fixtures *prediction.Table
}

func (t *trial) run(r rng.Source) (*models.Bracket, error) {
	standings := make(map[string][]models.GroupStanding, len(t.groups))
	for i, label := range t.format.Groups {
		table, err := group.Simulate(label, t.groups[i], t.fixtures, r)
		if err != nil {
			return nil, err
		}
		standings[label] = table
	}
	seeded, err := bracket.Seed(t.format, standings)
	if err != nil {
		return nil, err
	}
	return bracket.Simulate(t.format, seeded, t.fixtures, r)
}

// predict resolves the tournament once by always taking the most likely outcome.
func (t *trial) predict() (map[string][]models.GroupStanding, map[string][]models.MatchResult, *models.Bracket, error) {
	standings := make(map[string][]models.GroupStanding, len(t.groups))
	matches := make(map[string][]models.MatchResult, len(t.groups))
	for i, label := range t.format.Groups {
		table, results, err := group.Predict(label, t.groups[i], t.fixtures)
		if err != nil {
			return nil, nil, nil, err
		}
		standings[label] = table
		matches[label] = results
	}
	seeded, err := bracket.Seed(t.format, standings)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := bracket.Predict(t.format, seeded, t.fixtures)
	if err != nil {
		return nil, nil, nil, err
	}
	return standings, matches, b, nil
}
