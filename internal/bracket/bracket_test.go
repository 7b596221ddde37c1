package bracket

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup_sim/internal/match"
	"worldcup_sim/internal/models"
	"worldcup_sim/internal/rng"
)

// strengths builds fixtures where λ(a vs b) = strength[a].
type strengths map[string]float64

func (s strengths) Fixture(a, b string) (match.Fixture, error) {
	la, ok := s[a]
	if !ok {
		return match.Fixture{}, &models.UnknownTeamError{Team: a}
	}
	lb, ok := s[b]
	if !ok {
		return match.Fixture{}, &models.UnknownTeamError{Team: b}
	}
	return match.NewFixture(la, lb)
}

// tables returns finished group tables where team "<label><n>" finished n-th.
func tables(f *Format) map[string][]models.GroupStanding {
	out := make(map[string][]models.GroupStanding, len(f.Groups))
	for gi, g := range f.Groups {
		table := make([]models.GroupStanding, models.GroupSize)
		for i := range table {
			table[i] = models.GroupStanding{
				Team:   g + string(rune('1'+i)),
				Points: 9 - 3*i,
				Rank:   i,
				Order:  i,
			}
		}
		// Thirds get distinct records so the best-third ranking is visible:
		// later groups have more goals for.
		table[2].GoalsFor = float64(gi)
		out[g] = table
	}
	return out
}

func allTeams(f *Format, strength func(pos int) float64) strengths {
	s := make(strengths)
	for _, g := range f.Groups {
		for i := 0; i < models.GroupSize; i++ {
			s[g+string(rune('1'+i))] = strength(i)
		}
	}
	return s
}

func lowerNameWins(a, b string) (models.MatchResult, error) {
	m := models.MatchResult{TeamA: a, TeamB: b, Winner: a}
	if b < a {
		m.Winner = b
	}
	return m, nil
}

func TestBuiltInFormatsValidate(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"32_team", "48_team"}, r.Names())

	f32, err := r.Get("32_team")
	require.NoError(t, err)
	assert.Equal(t, 16, f32.Size())
	assert.Len(t, f32.Groups, 8)

	f48, err := r.Get("48_team")
	require.NoError(t, err)
	assert.Equal(t, 32, f48.Size())
	assert.Equal(t, 8, f48.BestThirds)

	f, ok := r.ForGroupCount(12)
	require.True(t, ok)
	assert.Equal(t, "48_team", f.Name)
	_, ok = r.ForGroupCount(5)
	assert.False(t, ok)
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewRegistry().Get("64_team")
	var ferr *models.FormatError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "64_team", ferr.Format)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestValidateRejectsBrokenFormats(t *testing.T) {
	cases := map[string]func(f *Format){
		"missing name":     func(f *Format) { f.Name = "" },
		"too few rounds":   func(f *Format) { f.Rounds = f.Rounds[1:] },
		"last not final":   func(f *Format) { f.Rounds[len(f.Rounds)-1].Key = "last" },
		"duplicate slot":   func(f *Format) { f.FirstRound[1][0] = "1A" },
		"unknown group":    func(f *Format) { f.FirstRound[0][0] = "1Z" },
		"bad position":     func(f *Format) { f.FirstRound[0][0] = "5A" },
		"third not seeded": func(f *Format) { f.FirstRound[0][0] = "T1" },
		"odd slot count":   func(f *Format) { f.FirstRound[0] = []string{"1A"} },
		"not power of two": func(f *Format) { f.FirstRound = f.FirstRound[:3] },
		"duplicate group":  func(f *Format) { f.Groups[1] = "A" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := Format32()
			mutate(f)
			var ferr *models.FormatError
			assert.True(t, errors.As(f.Validate(), &ferr))
			assert.Nil(t, f.slots)
		})
	}
}

func TestLoadFormatsYAML(t *testing.T) {
	doc := []byte(`
formats:
  - name: 16_team
    groups: [A, B, C, D]
    first_round:
      - [1A, 2B]
      - [1C, 2D]
      - [1B, 2A]
      - [1D, 2C]
    rounds:
      - {key: quarter_finals, name: Quarter Finals}
      - {key: semi_finals, name: Semi Finals}
      - {key: final, name: Final}
`)
	r := NewRegistry()
	require.NoError(t, r.LoadFormatsYAML(doc))
	f, err := r.Get("16_team")
	require.NoError(t, err)
	assert.Equal(t, 8, f.Size())

	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2", "C1", "D2", "B1", "A2", "D1", "C2"}, seeded)

	b, err := Resolve(f, seeded, lowerNameWins)
	require.NoError(t, err)
	assert.Equal(t, "A1", b.Champion)
	assert.Len(t, b.Rounds, 3)
}

func TestLoadFormatsYAMLRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	err := r.LoadFormatsYAML([]byte("formats:\n  - name: broken\n    groups: [A]\n"))
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Error(t, r.LoadFormatsYAML([]byte("formats: [")))
}

func TestSeed32(t *testing.T) {
	f := Format32()
	require.NoError(t, f.Validate())
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"A1", "B2", "C1", "D2", "E1", "F2", "G1", "H2",
		"B1", "A2", "D1", "C2", "F1", "E2", "H1", "G2",
	}, seeded)
}

func TestSelectBestThirds(t *testing.T) {
	f := Format48()
	require.NoError(t, f.Validate())
	st := tables(f)
	// Group A's third ties group B's third on everything; A comes first.
	st["A"][2].GoalsFor = 20
	st["B"][2].GoalsFor = 20

	thirds, err := SelectBestThirds(f, st)
	require.NoError(t, err)
	require.Len(t, thirds, 8)
	names := make([]string, len(thirds))
	for i, s := range thirds {
		names[i] = s.Team
		assert.Equal(t, i, s.Rank)
	}
	assert.Equal(t, []string{"A3", "B3", "L3", "K3", "J3", "I3", "H3", "G3"}, names)
}

func TestSelectBestThirdsAllTied(t *testing.T) {
	f := Format48()
	require.NoError(t, f.Validate())
	st := tables(f)
	for _, g := range f.Groups {
		st[g][2].Points = 4
		st[g][2].GoalDifference = -1
		st[g][2].GoalsFor = 3
		st[g][2].GoalsAgainst = 4
	}

	thirds, err := SelectBestThirds(f, st)
	require.NoError(t, err)
	require.Len(t, thirds, 8)
	names := make([]string, len(thirds))
	for i, s := range thirds {
		names[i] = s.Team
	}
	assert.Equal(t, []string{"A3", "B3", "C3", "D3", "E3", "F3", "G3", "H3"}, names)
}

func TestSeedRequiresValidatedFormat(t *testing.T) {
	f := Format32()
	_, err := Seed(f, tables(f))
	var ferr *models.FormatError
	require.True(t, errors.As(err, &ferr))
	assert.Nil(t, f.slots)

	require.NoError(t, f.Validate())
	_, err = Seed(f, tables(f))
	assert.NoError(t, err)
}

func TestSelectBestThirdsMissingGroup(t *testing.T) {
	f := Format48()
	require.NoError(t, f.Validate())
	st := tables(f)
	delete(st, "K")
	_, err := SelectBestThirds(f, st)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestSeed48(t *testing.T) {
	f := Format48()
	require.NoError(t, f.Validate())
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)
	require.Len(t, seeded, 32)

	// Thirds by goals for: L3 K3 J3 I3 H3 G3 F3 E3.
	assert.Equal(t, []string{"A1", "B2"}, seeded[0:2])
	assert.Equal(t, []string{"L3", "E3"}, seeded[2:4])
	assert.Equal(t, []string{"K3", "F3"}, seeded[10:12])
	assert.Equal(t, []string{"J3", "G3"}, seeded[18:20])
	assert.Equal(t, []string{"I3", "H3"}, seeded[26:28])

	seen := make(map[string]bool)
	for _, team := range seeded {
		require.False(t, seen[team], team)
		seen[team] = true
	}
}

func TestResolveRoundSizes(t *testing.T) {
	f := Format48()
	require.NoError(t, f.Validate())
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)
	b, err := Resolve(f, seeded, lowerNameWins)
	require.NoError(t, err)

	sizes := make([]int, len(b.Rounds))
	for i, r := range b.Rounds {
		sizes[i] = len(r.Matches)
	}
	assert.Equal(t, []int{16, 8, 4, 2, 1}, sizes)
	assert.Equal(t, "A1", b.Champion)
	assert.Equal(t, "A1", b.Final().Winner)
	assert.Len(t, b.Semifinalists(), 4)
	assert.ElementsMatch(t, b.Finalists(), []string{b.Final().TeamA, b.Final().TeamB})

	// Round r+1 pairs the winners of adjacent matches.
	r16 := b.Round("round_of_16")
	r32 := b.Round("round_of_32")
	assert.Equal(t, r32[0].Winner, r16[0].TeamA)
	assert.Equal(t, r32[1].Winner, r16[0].TeamB)
}

func TestResolveSeedingMismatch(t *testing.T) {
	f := Format32()
	require.NoError(t, f.Validate())
	_, err := Resolve(f, []string{"a", "b", "c"}, lowerNameWins)
	var serr *models.SeedingMismatchError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 16, serr.Expected)
	assert.Equal(t, 3, serr.Got)
}

func TestResolveRejectsForeignWinner(t *testing.T) {
	f := Format32()
	require.NoError(t, f.Validate())
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)
	_, err = Resolve(f, seeded, func(a, b string) (models.MatchResult, error) {
		return models.MatchResult{TeamA: a, TeamB: b, Winner: models.Draw}, nil
	})
	assert.Error(t, err)
}

func TestSimulateIsReproducible(t *testing.T) {
	f := Format32()
	require.NoError(t, f.Validate())
	fx := allTeams(f, func(pos int) float64 { return 1.4 - 0.2*float64(pos) })
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)

	first, err := Simulate(f, seeded, fx, rng.NewXorshift32(7))
	require.NoError(t, err)
	second, err := Simulate(f, seeded, fx, rng.NewXorshift32(7))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, r := range first.Rounds {
		for _, m := range r.Matches {
			assert.Contains(t, []string{m.TeamA, m.TeamB}, m.Winner)
			assert.Greater(t, m.AdvanceProb, 0.0)
			assert.LessOrEqual(t, m.AdvanceProb, 1.0)
		}
	}
}

func TestSimulateUnknownTeam(t *testing.T) {
	f := Format32()
	require.NoError(t, f.Validate())
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)
	fx := allTeams(f, func(int) float64 { return 1 })
	delete(fx, "H2")

	_, err = Simulate(f, seeded, fx, rng.NewXorshift32(1))
	var uerr *models.UnknownTeamError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "H2", uerr.Team)
}

func TestPredictFavouriteGoesThrough(t *testing.T) {
	f := Format32()
	require.NoError(t, f.Validate())
	fx := allTeams(f, func(pos int) float64 { return 1.5 - 0.3*float64(pos) })
	fx["E1"] = 3.0
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)

	b, err := Predict(f, seeded, fx)
	require.NoError(t, err)
	assert.Equal(t, "E1", b.Champion)
	for _, m := range b.Round("round_of_16") {
		// Group winners always meet runners-up, who are weaker.
		assert.Equal(t, m.TeamA, m.Winner)
		assert.Greater(t, m.AdvanceProb, 0.5)
	}
}

func TestBracketJSONKeys(t *testing.T) {
	f := Format48()
	require.NoError(t, f.Validate())
	seeded, err := Seed(f, tables(f))
	require.NoError(t, err)
	b, err := Resolve(f, seeded, lowerNameWins)
	require.NoError(t, err)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"round_of_32", "round_of_16", "quarter_finals", "semi_finals", "final", "champion"} {
		assert.Contains(t, doc, key)
	}
	var final models.MatchResult
	require.NoError(t, json.Unmarshal(doc["final"], &final))
	assert.Equal(t, "A1", final.Winner)

	var back models.Bracket
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, b.Champion, back.Champion)
	assert.Len(t, back.Rounds, 5)
}
