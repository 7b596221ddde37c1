package teams

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup_sim/internal/models"
)

func TestDefaultRoster(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	require.Greater(t, r.Len(), 48)

	all := r.Teams()
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].EloRating, all[i].EloRating)
	}
	assert.Equal(t, "Spain", all[0].Name)

	brazil, ok := r.Lookup("Brazil")
	require.True(t, ok)
	assert.Equal(t, "br", brazil.ISOCode)
	assert.Equal(t, "https://flagcdn.com/w80/br.png", brazil.FlagURL)
}

func TestLookupIsForgiving(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	for in, want := range map[string]string{
		"brazil":          "Brazil",
		"  SOUTH   korea": "South Korea",
		"Korea Republic":  "South Korea",
		"USA":             "United States",
		"Côte d'Ivoire":   "Ivory Coast",
		"Türkiye":         "Turkey",
		"Curaçao":         "Curacao",
	} {
		got, err := r.Canonical(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err = r.Canonical("Atlantis ")
	var uerr *models.UnknownTeamError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "Atlantis", uerr.Team)
}

func TestRatingsIsACopy(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	ratings := r.Ratings()
	assert.Len(t, ratings, r.Len())
	ratings["Spain"] = 0
	spain, _ := r.Lookup("Spain")
	assert.NotZero(t, spain.EloRating)
}

func TestParse(t *testing.T) {
	r, err := Parse([]byte(`
teams:
  - {name: Sweden, elo: 1750}
  - {name: Narnia, elo: 1400}
  - {name: Chile, iso: cl, elo: 1800}
`))
	require.NoError(t, err)
	all := r.Teams()
	require.Len(t, all, 3)
	assert.Equal(t, "Chile", all[0].Name)
	assert.Equal(t, "se", all[1].ISOCode)
	assert.Equal(t, "na", all[2].ISOCode)
	assert.Equal(t, "https://flagcdn.com/w80/na.png", all[2].FlagURL)

	_, err = Parse([]byte("teams: []"))
	assert.Error(t, err)
	_, err = Parse([]byte("teams:\n  - {name: A}\n  - {name: a}\n"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "sao tome e principe", Normalize(" São Tomé  e Príncipe"))
	assert.Equal(t, Normalize("BOSNIA and herzegovina"), Normalize("Bosnia And Herzegovina"))
}
