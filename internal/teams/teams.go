// Package teams holds the roster of known national teams with their display
// metadata and Elo ratings.
package teams

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	yaml "gopkg.in/yaml.v2"

	"worldcup_sim/internal/models"
)

//go:embed ratings.yaml
var defaultRoster []byte

const flagURLFormat = "https://flagcdn.com/w80/%s.png"

// aliases maps alternative spellings (already normalized) to roster names.
var aliases = map[string]string{
	"usa":                      "United States",
	"united states of america": "United States",
	"korea republic":           "South Korea",
	"republic of korea":        "South Korea",
	"ir iran":                  "Iran",
	"turkiye":                  "Turkey",
	"cote d'ivoire":            "Ivory Coast",
	"cape verde islands":       "Cape Verde",
	"cabo verde":               "Cape Verde",
	"congo dr":                 "DR Congo",
	"holland":                  "Netherlands",
}

// Roster is an immutable list of teams sorted by rating, strongest first.
type Roster struct {
	teams []models.Team
	index map[string]int
}

type rosterFile struct {
	Teams []models.Team `yaml:"teams"`
}

// Default returns the embedded roster.
func Default() (*Roster, error) {
	return Parse(defaultRoster)
}

// Load reads a roster YAML file.
func Load(path string) (*Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(raw)
}

// Parse builds a roster from YAML of the form `teams: [{name, iso, elo}]`.
func Parse(raw []byte) (*Roster, error) {
	var f rosterFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("bad roster YAML: %w", err)
	}
	if len(f.Teams) == 0 {
		return nil, fmt.Errorf("roster has no teams")
	}

	r := &Roster{teams: f.Teams, index: make(map[string]int, len(f.Teams))}
	sort.SliceStable(r.teams, func(i, j int) bool { return r.teams[i].EloRating > r.teams[j].EloRating })
	for i := range r.teams {
		t := &r.teams[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("roster entry %d has no name", i)
		}
		if t.ISOCode == "" {
			t.ISOCode = ISOCode(t.Name)
		}
		t.FlagURL = FlagURL(t.ISOCode)
		key := Normalize(t.Name)
		if _, dup := r.index[key]; dup {
			return nil, fmt.Errorf("team %q listed twice", t.Name)
		}
		r.index[key] = i
	}
	return r, nil
}

// Teams returns every team, strongest first.
func (r *Roster) Teams() []models.Team {
	return append([]models.Team(nil), r.teams...)
}

// Len is the number of teams.
func (r *Roster) Len() int { return len(r.teams) }

// Lookup finds a team by name, ignoring case, accents and known aliases.
func (r *Roster) Lookup(name string) (models.Team, bool) {
	key := Normalize(name)
	if alias, ok := aliases[key]; ok {
		key = Normalize(alias)
	}
	i, ok := r.index[key]
	if !ok {
		return models.Team{}, false
	}
	return r.teams[i], true
}

// Canonical returns the roster spelling of name, or an UnknownTeamError.
func (r *Roster) Canonical(name string) (string, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return "", &models.UnknownTeamError{Team: strings.TrimSpace(name)}
	}
	return t.Name, nil
}

// Ratings returns a copy of the Elo ratings keyed by team name.
func (r *Roster) Ratings() map[string]float64 {
	out := make(map[string]float64, len(r.teams))
	for _, t := range r.teams {
		out[t.Name] = t.EloRating
	}
	return out
}

// Normalize folds a team name into its lookup key: accents stripped, case folded,
// inner whitespace collapsed.
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(plain)), " ")
}

// ISOCode returns the flag code of a team missing one: a known code when listed,
// otherwise the first two letters of the normalized name.
func ISOCode(name string) string {
	if code, ok := isoCodes[Normalize(name)]; ok {
		return code
	}
	key := strings.ReplaceAll(Normalize(name), " ", "")
	if len(key) > 2 {
		key = key[:2]
	}
	return key
}

// FlagURL returns the flag image URL for an ISO code.
func FlagURL(iso string) string {
	return fmt.Sprintf(flagURLFormat, iso)
}

// isoCodes covers teams outside the embedded roster.
var isoCodes = map[string]string{
	"bolivia":              "bo",
	"chile":                "cl",
	"china":                "cn",
	"czechia":              "cz",
	"czech republic":       "cz",
	"finland":              "fi",
	"greece":               "gr",
	"hungary":              "hu",
	"iceland":              "is",
	"jamaica":              "jm",
	"mali":                 "ml",
	"new caledonia":        "nc",
	"nigeria":              "ng",
	"north macedonia":      "mk",
	"northern ireland":     "gb-nir",
	"peru":                 "pe",
	"republic of ireland":  "ie",
	"romania":              "ro",
	"russia":               "ru",
	"slovakia":             "sk",
	"slovenia":             "si",
	"suriname":             "sr",
	"sweden":               "se",
	"united arab emirates": "ae",
	"venezuela":            "ve",
}
