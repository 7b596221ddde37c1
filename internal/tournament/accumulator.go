package tournament

import (
	"sort"

	"worldcup_sim/internal/models"
)

// Accumulator counts how often each team reached the last three stages.
// Merging is plain per-key addition, so partial accumulators combine in any order.
type Accumulator struct {
	Champions     map[string]int
	Finalists     map[string]int
	Semifinalists map[string]int
	N             int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Champions:     make(map[string]int),
		Finalists:     make(map[string]int),
		Semifinalists: make(map[string]int),
	}
}

// Add records one finished trial.
func (a *Accumulator) Add(b *models.Bracket) {
	a.Champions[b.Champion]++
	for _, t := range b.Finalists() {
		a.Finalists[t]++
	}
	for _, t := range b.Semifinalists() {
		a.Semifinalists[t]++
	}
	a.N++
}

// Merge adds every count of o into a.
func (a *Accumulator) Merge(o *Accumulator) {
	for t, c := range o.Champions {
		a.Champions[t] += c
	}
	for t, c := range o.Finalists {
		a.Finalists[t] += c
	}
	for t, c := range o.Semifinalists {
		a.Semifinalists[t] += c
	}
	a.N += o.N
}

// TeamOdds is one team's estimated probability of reaching each stage.
type TeamOdds struct {
	Team      string  `json:"team"`
	Champion  float64 `json:"champion"`
	Final     float64 `json:"final"`
	SemiFinal float64 `json:"semi_final"`
}

// Odds lists every team that reached at least the semi-finals once, most likely
// champion first.
func (a *Accumulator) Odds() []TeamOdds {
	if a.N == 0 {
		return nil
	}
	n := float64(a.N)
	teams := make(map[string]struct{}, len(a.Semifinalists))
	for _, m := range []map[string]int{a.Champions, a.Finalists, a.Semifinalists} {
		for t := range m {
			teams[t] = struct{}{}
		}
	}
	out := make([]TeamOdds, 0, len(teams))
	for t := range teams {
		out = append(out, TeamOdds{
			Team:      t,
			Champion:  float64(a.Champions[t]) / n,
			Final:     float64(a.Finalists[t]) / n,
			SemiFinal: float64(a.Semifinalists[t]) / n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		switch {
		case out[i].Champion != out[j].Champion:
			return out[i].Champion > out[j].Champion
		case out[i].Final != out[j].Final:
			return out[i].Final > out[j].Final
		case out[i].SemiFinal != out[j].SemiFinal:
			return out[i].SemiFinal > out[j].SemiFinal
		}
		return out[i].Team < out[j].Team
	})
	return out
}
