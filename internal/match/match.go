// Package match turns two expected-goals values into outcome probabilities and
// sampled results under independent Poisson goal counts.
package match

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"worldcup_sim/internal/models"
	"worldcup_sim/internal/rng"
)

const (
	// exactLimit is the largest expected-goals value whose distribution is
	// tabulated. Above it goal counts follow the normal approximation.
	exactLimit = 1e4
	// windowSigmas is the half-width, in standard deviations, of a tabulated
	// distribution around its mean.
	windowSigmas = 10
	// MaxGoals is the largest goal count a sampled side can score.
	MaxGoals = math.MaxInt32
)

// Odds are the three outcome probabilities of a match, seen from side A.
type Odds struct {
	WinA float64 `json:"win_a"`
	Draw float64 `json:"draw"`
	WinB float64 `json:"win_b"`
}

// Swap returns the odds seen from side B.
func (o Odds) Swap() Odds { return Odds{WinA: o.WinB, Draw: o.Draw, WinB: o.WinA} }

// ShareA is A's share of a level knockout match: p_win_a / (p_win_a + p_win_b),
// or 0.5 when neither side can win in regular time.
func (o Odds) ShareA() float64 {
	if o.WinA+o.WinB == 0 {
		return 0.5
	}
	return o.WinA / (o.WinA + o.WinB)
}

// AdvanceA is the probability that A survives a knockout match.
func (o Odds) AdvanceA() float64 { return o.WinA + o.Draw*o.ShareA() }

// FavoursA reports whether A is the more likely winner, ignoring the draw.
// Equal win probabilities go to the higher expected goals, then to A.
func (f Fixture) FavoursA() bool {
	if f.Odds.WinA != f.Odds.WinB {
		return f.Odds.WinA > f.Odds.WinB
	}
	return f.LambdaA >= f.LambdaB
}

// Fixture is an immutable matchup with precomputed goal distributions.
type Fixture struct {
	LambdaA float64
	LambdaB float64
	Odds    Odds
	goalsA  goals
	goalsB  goals
}

// NewFixture validates both expected-goals values and precomputes odds and CDFs.
func NewFixture(lambdaA, lambdaB float64) (Fixture, error) {
	if err := validLambda("lambda_a", lambdaA); err != nil {
		return Fixture{}, err
	}
	if err := validLambda("lambda_b", lambdaB); err != nil {
		return Fixture{}, err
	}
	ga, gb := newGoals(lambdaA), newGoals(lambdaB)
	return Fixture{
		LambdaA: lambdaA,
		LambdaB: lambdaB,
		Odds:    odds(ga, gb),
		goalsA:  ga,
		goalsB:  gb,
	}, nil
}

// Swap returns the same fixture seen from side B.
func (f Fixture) Swap() Fixture {
	return Fixture{
		LambdaA: f.LambdaB,
		LambdaB: f.LambdaA,
		Odds:    f.Odds.Swap(),
		goalsA:  f.goalsB,
		goalsB:  f.goalsA,
	}
}

// Probabilities returns the closed-form win/draw/loss probabilities for
// independent Poisson(lambdaA) and Poisson(lambdaB) goal counts.
func Probabilities(lambdaA, lambdaB float64) (Odds, error) {
	f, err := NewFixture(lambdaA, lambdaB)
	if err != nil {
		return Odds{}, err
	}
	return f.Odds, nil
}

// SampleGroupMatch draws one goal count per side, A first. Draws are allowed.
func SampleGroupMatch(lambdaA, lambdaB float64, r rng.Source) (int, int, error) {
	f, err := NewFixture(lambdaA, lambdaB)
	if err != nil {
		return 0, 0, err
	}
	a, b := f.SampleGoals(r)
	return a, b, nil
}

// SampleKnockoutMatch plays a match that cannot end level and reports whether A won.
func SampleKnockoutMatch(lambdaA, lambdaB float64, r rng.Source) (bool, error) {
	f, err := NewFixture(lambdaA, lambdaB)
	if err != nil {
		return false, err
	}
	aWins, _, _ := f.SampleKnockout(r)
	return aWins, nil
}

// SampleGoals consumes exactly two values from r.
func (f Fixture) SampleGoals(r rng.Source) (int, int) {
	return f.goalsA.sample(r.Float64()), f.goalsB.sample(r.Float64())
}

// SampleKnockout plays regular time like a group match. A level score is decided
// by one more draw, A advancing with probability Odds.ShareA().
func (f Fixture) SampleKnockout(r rng.Source) (aWins bool, goalsA, goalsB int) {
	goalsA, goalsB = f.SampleGoals(r)
	switch {
	case goalsA > goalsB:
		return true, goalsA, goalsB
	case goalsB > goalsA:
		return false, goalsA, goalsB
	}
	return r.Float64() < f.Odds.ShareA(), goalsA, goalsB
}

func validLambda(name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &models.InvalidParameterError{Param: name, Value: v}
	}
	return nil
}

// goals is the distribution of one side's goal count. Up to exactLimit it is
// the Poisson pmf tabulated over [lo, lo+len(pmf)) and renormalized; above it
// the distribution is normal with mean and variance lambda.
type goals struct {
	lambda float64
	lo     int
	pmf    []float64
	cdf    []float64
}

func newGoals(lambda float64) goals {
	g := goals{lambda: lambda}
	if lambda > exactLimit {
		return g
	}
	if lambda == 0 {
		g.pmf, g.cdf = []float64{1}, []float64{1}
		return g
	}
	sigma := math.Sqrt(lambda)
	lo := int(math.Max(0, math.Floor(lambda-windowSigmas*sigma-10)))
	hi := int(math.Ceil(lambda + windowSigmas*sigma + 10))
	dist := distuv.Poisson{Lambda: lambda}
	g.lo = lo
	g.pmf = make([]float64, hi-lo+1)
	total := 0.0
	for i := range g.pmf {
		g.pmf[i] = dist.Prob(float64(lo + i))
		total += g.pmf[i]
	}
	g.cdf = make([]float64, len(g.pmf))
	cum := 0.0
	for i := range g.pmf {
		g.pmf[i] /= total
		cum += g.pmf[i]
		g.cdf[i] = cum
	}
	g.cdf[len(g.cdf)-1] = 1
	return g
}

func (g goals) tabulated() bool { return g.pmf != nil }

// prob is P(X=k).
func (g goals) prob(k int) float64 {
	if k < g.lo || k >= g.lo+len(g.pmf) {
		return 0
	}
	return g.pmf[k-g.lo]
}

// below is P(X<k).
func (g goals) below(k int) float64 {
	switch {
	case k <= g.lo:
		return 0
	case k > g.lo+len(g.cdf):
		return 1
	}
	return g.cdf[k-g.lo-1]
}

// sample maps a uniform u in [0,1) to a goal count: the smallest k with
// u <= P(X<=k) when tabulated, the rounded normal quantile otherwise.
func (g goals) sample(u float64) int {
	if !g.tabulated() {
		x := math.Floor(g.lambda + math.Sqrt(g.lambda)*distuv.UnitNormal.Quantile(u) + 0.5)
		switch {
		case math.IsNaN(x) || x < 0:
			return 0
		case x > MaxGoals:
			return MaxGoals
		}
		return int(x)
	}
	k := 0
	for k < len(g.cdf)-1 && u > g.cdf[k] {
		k++
	}
	return g.lo + k
}

// odds sums P(A=k) against B's distribution over A's support. When either side
// is not tabulated the goal difference is taken as normal with a continuity
// correction.
func odds(a, b goals) Odds {
	if !a.tabulated() || !b.tabulated() {
		mu := a.lambda - b.lambda
		sd := math.Hypot(math.Sqrt(a.lambda), math.Sqrt(b.lambda))
		loss := distuv.UnitNormal.CDF((-0.5 - mu) / sd)
		notWin := distuv.UnitNormal.CDF((0.5 - mu) / sd)
		return Odds{WinA: 1 - notWin, Draw: notWin - loss, WinB: loss}
	}
	var win, draw, loss float64
	for i, p := range a.pmf {
		k := a.lo + i
		win += p * b.below(k)
		draw += p * b.prob(k)
		loss += p * (1 - b.below(k+1))
	}
	total := win + draw + loss
	return Odds{WinA: win / total, Draw: draw / total, WinB: loss / total}
}
