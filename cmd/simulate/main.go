// simulate.go
// Monte-Carlo World Cup simulator.
// Reads one tournament file (JSON or YAML, picked by extension):
//   • format and group draw
//   • optional Elo overrides and goal-model parameters
//   • numberOfSimulations, seed, prng
//
// Build / run:
//   go run ./cmd/simulate tournament.yaml
//   go run ./cmd/simulate -n 50000 -prng math tournament.yaml
// ---------------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"worldcup_sim/internal/bracket"
	"worldcup_sim/internal/config"
	"worldcup_sim/internal/logger"
	"worldcup_sim/internal/prediction"
	"worldcup_sim/internal/rng"
	"worldcup_sim/internal/teams"
	"worldcup_sim/internal/tournament"
)

/* -------------------------------------------------------------------------
   Flags
-------------------------------------------------------------------------- */

type options struct {
	path     string
	prng     string
	n        int
	seed     int64
	workers  int
	format   string
	timeout  time.Duration
	logLevel string
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.prng, "prng", "", "PRNG to use: 'math' or 'xorshift32' (default from file, else xorshift32)")
	fs.IntVar(&o.n, "n", 0, "number of simulations (overrides numberOfSimulations)")
	fs.Int64Var(&o.seed, "seed", 0, "run seed (overrides the file; 0 = file seed or clock)")
	fs.IntVar(&o.workers, "workers", 0, "worker goroutines (0 = one per CPU)")
	fs.StringVar(&o.format, "format", "", "tournament format (overrides the file)")
	fs.DurationVar(&o.timeout, "timeout", 0, "abort the run after this long (0 = no limit)")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.path = fs.Arg(0)
	if o.path == "" {
		o.path = "tournament.yaml"
	}
	return o, nil
}

/* -------------------------------------------------------------------------
   Main
-------------------------------------------------------------------------- */

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	log := logger.InitLogger(o.logLevel, true)
	log.SetOutput(os.Stderr)

	if err := run(context.Background(), o, os.Stdout, log); err != nil {
		log.Fatalf("simulate: %v", err)
	}
}

func run(ctx context.Context, o options, out io.Writer, log *logrus.Logger) error {
	cfg, err := config.LoadTournament(o.path)
	if err != nil {
		return err
	}

	formats := bracket.NewRegistry()
	if cfg.Formats != "" {
		if err := formats.LoadFormats(cfg.Formats); err != nil {
			return err
		}
	}
	format := firstNonEmpty(o.format, cfg.Format)
	if format == "" {
		f, ok := formats.ForGroupCount(len(cfg.Groups))
		if !ok {
			return fmt.Errorf("config error: 'format' is required for %d groups", len(cfg.Groups))
		}
		format = f.Name
	}

	prng, err := rng.NewFactory(firstNonEmpty(o.prng, cfg.PRNG))
	if err != nil {
		return err
	}

	roster, err := teams.Default()
	if err != nil {
		return err
	}
	groups, ratings := resolveTeams(roster, cfg)
	model, err := prediction.NewEloModel(ratings, prediction.EloConfig{
		GoalBase:      cfg.GoalBase,
		GoalScale:     cfg.GoalScale,
		HomeAdvantage: cfg.HomeAdvantage,
	})
	if err != nil {
		return err
	}

	n := cfg.NumberOfSimulations
	if o.n > 0 {
		n = o.n
	}
	seed := cfg.Seed
	if o.seed != 0 {
		seed = o.seed
	}

	sim := tournament.New(formats, tournament.Options{
		Workers:        o.workers,
		MaxSimulations: n,
		Timeout:        o.timeout,
		PRNG:           prng,
		Logger:         log,
	})
	req := tournament.Request{Format: format, Groups: groups, NumSimulations: n, Seed: seed}

	start := time.Now()
	res, err := sim.Simulate(ctx, req, model)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Fprintf(out, "Simulation time: %v (%d simulations, %s, seed %d)\n\n", elapsed, res.NumSimulations, res.Format, res.Seed)

	printOdds(out, res, groups)
	fmt.Fprintln(out)
	printBracket(out, res)
	fmt.Fprintln(out)
	return printFixtures(ctx, out, res, model)
}

// resolveTeams maps group entries onto roster spellings where the roster knows
// them and overlays the file's Elo ratings.
func resolveTeams(roster *teams.Roster, cfg *config.Tournament) (map[string][]string, map[string]float64) {
	name := func(raw string) string {
		if canonical, err := roster.Canonical(raw); err == nil {
			return canonical
		}
		return raw
	}
	groups := make(map[string][]string, len(cfg.Groups))
	for label, members := range cfg.Groups {
		resolved := make([]string, len(members))
		for i, team := range members {
			resolved[i] = name(team)
		}
		groups[label] = resolved
	}
	ratings := roster.Ratings()
	for team, r := range cfg.Elo {
		ratings[name(team)] = r
	}
	return groups, ratings
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

/* -------------------------------------------------------------------------
   Pretty print helpers
-------------------------------------------------------------------------- */

func pct(x float64) string { return fmt.Sprintf("%.1f%%", x*100) }

// Table 1 – stage probabilities, every drawn team
func printOdds(out io.Writer, res *tournament.Result, groups map[string][]string) {
	groupOf := make(map[string]string)
	for label, members := range groups {
		for _, t := range members {
			groupOf[t] = label
		}
	}

	odds := res.Accumulator().Odds()
	listed := make(map[string]bool, len(odds))
	for _, o := range odds {
		listed[o.Team] = true
	}
	var rest []tournament.TeamOdds
	for t := range groupOf {
		if !listed[t] {
			rest = append(rest, tournament.TeamOdds{Team: t})
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Team < rest[j].Team })
	odds = append(odds, rest...)

	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, "Team\tGroup\tChampion\tFinal\tSemi-final")
	for _, o := range odds {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			o.Team, groupOf[o.Team], pct(o.Champion), pct(o.Final), pct(o.SemiFinal))
	}
	w.Flush()
}

// Table 2 – most likely bracket
func printBracket(out io.Writer, res *tournament.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, "Round\tMatch\tWinner\tWin\tAdvance")
	for _, r := range res.Bracket.Rounds {
		for _, m := range r.Matches {
			fmt.Fprintf(w, "%s\t%s vs %s\t%s\t%s\t%s\n",
				r.Name, m.TeamA, m.TeamB, m.Winner, pct(m.WinProb), pct(m.AdvanceProb))
		}
	}
	fmt.Fprintf(w, "Champion\t\t%s\t\t\n", res.Bracket.Champion)
	w.Flush()
}

// Table 3 – per-fixture group odds
func printFixtures(ctx context.Context, out io.Writer, res *tournament.Result, p prediction.Predictor) error {
	labels := make([]string, 0, len(res.GroupMatches))
	for label := range res.GroupMatches {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, "Group\tMatch\tWin\tDraw\tLoss")
	for _, label := range labels {
		for _, m := range res.GroupMatches[label] {
			odds, err := tournament.PredictMatch(ctx, p, m.TeamA, m.TeamB, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s vs %s\t%s\t%s\t%s\n",
				label, m.TeamA, m.TeamB, pct(odds.HomeWinProb), pct(odds.DrawProb), pct(odds.AwayWinProb))
		}
	}
	return w.Flush()
}
