package bracket

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"worldcup_sim/internal/models"
)

// RoundConfig names one knockout round.
type RoundConfig struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
}

// Format is the full configuration of one tournament size: its groups, how many
// third-placed teams advance, the first-round pairing table and the round names.
// Later rounds always pair the winners of adjacent matches.
type Format struct {
	Name       string        `yaml:"name" json:"name"`
	Groups     []string      `yaml:"groups" json:"groups"`
	BestThirds int           `yaml:"best_thirds" json:"best_thirds"`
	FirstRound [][]string    `yaml:"first_round" json:"first_round"`
	Rounds     []RoundConfig `yaml:"rounds" json:"rounds"`

	slots [][2]slot
}

// slot is either a group position (group label, 0-based rank) or the n-th best
// third-placed team (third >= 0).
type slot struct {
	group string
	rank  int
	third int
}

// parseSlot reads "1A" (winner of group A), "2B" (runner-up of B) or "T3" (third
// best of the third-placed teams).
func parseSlot(s string) (slot, error) {
	if len(s) < 2 {
		return slot{}, fmt.Errorf("bad slot %q", s)
	}
	if s[0] == 'T' {
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 1 {
			return slot{}, fmt.Errorf("bad third-place slot %q", s)
		}
		return slot{third: n - 1}, nil
	}
	if s[0] < '1' || s[0] > '0'+models.GroupSize {
		return slot{}, fmt.Errorf("bad group position in slot %q", s)
	}
	return slot{group: s[1:], rank: int(s[0] - '1'), third: -1}, nil
}

// Size is the number of teams entering the knockout stage.
func (f *Format) Size() int { return 2 * len(f.FirstRound) }

// Validate checks the pairing table against the groups and round list and caches
// the parsed slots. It must be called before the format is used.
func (f *Format) Validate() error {
	fail := func(format string, args ...any) error {
		return &models.FormatError{Format: f.Name, Reason: fmt.Sprintf(format, args...)}
	}
	if f.Name == "" {
		return fail("missing name")
	}
	if len(f.Groups) == 0 {
		return fail("no groups")
	}
	groups := make(map[string]bool, len(f.Groups))
	for _, g := range f.Groups {
		if g == "" || groups[g] {
			return fail("empty or duplicate group label %q", g)
		}
		groups[g] = true
	}
	if f.BestThirds < 0 || f.BestThirds > len(f.Groups) {
		return fail("best_thirds=%d with %d groups", f.BestThirds, len(f.Groups))
	}

	size := f.Size()
	if size < 2 || size&(size-1) != 0 {
		return fail("first round seeds %d teams, want a power of two", size)
	}
	if want := roundsFor(size); len(f.Rounds) != want {
		return fail("%d teams need %d rounds, got %d", size, want, len(f.Rounds))
	}
	if f.Rounds[len(f.Rounds)-1].Key != models.FinalKey {
		return fail("last round must be %q", models.FinalKey)
	}

	used := make(map[string]bool, size)
	slots := make([][2]slot, len(f.FirstRound))
	for i, pair := range f.FirstRound {
		if len(pair) != 2 {
			return fail("first-round match %d has %d slots", i+1, len(pair))
		}
		for side, raw := range pair {
			if used[raw] {
				return fail("slot %s used twice", raw)
			}
			used[raw] = true
			s, err := parseSlot(raw)
			if err != nil {
				return fail("%v", err)
			}
			if s.third >= f.BestThirds {
				return fail("slot %s but only %d thirds advance", raw, f.BestThirds)
			}
			if s.third < 0 && !groups[s.group] {
				return fail("slot %s names unknown group %q", raw, s.group)
			}
			slots[i][side] = s
		}
	}
	f.slots = slots
	return nil
}

func roundsFor(size int) int {
	n := 0
	for size > 1 {
		size /= 2
		n++
	}
	return n
}

// CheckGroups verifies that the draw uses exactly the format's group labels.
func (f *Format) CheckGroups(groups map[string][]string) error {
	if len(groups) != len(f.Groups) {
		return &models.FormatError{
			Format: f.Name,
			Reason: fmt.Sprintf("expected %d groups, got %d", len(f.Groups), len(groups)),
		}
	}
	for _, g := range f.Groups {
		if _, ok := groups[g]; !ok {
			return &models.FormatError{Format: f.Name, Reason: fmt.Sprintf("missing group %s", g)}
		}
	}
	return nil
}

func labels(from, to byte) []string {
	out := make([]string, 0, to-from+1)
	for c := from; c <= to; c++ {
		out = append(out, string(c))
	}
	return out
}

// Format32 is the eight-group format: group winners meet the runners-up of the
// neighbouring group in the round of 16.
func Format32() *Format {
	return &Format{
		Name:   "32_team",
		Groups: labels('A', 'H'),
		FirstRound: [][]string{
			{"1A", "2B"}, {"1C", "2D"}, {"1E", "2F"}, {"1G", "2H"},
			{"1B", "2A"}, {"1D", "2C"}, {"1F", "2E"}, {"1H", "2G"},
		},
		Rounds: []RoundConfig{
			{"round_of_16", "Round of 16"},
			{"quarter_finals", "Quarter Finals"},
			{"semi_finals", "Semi Finals"},
			{models.FinalKey, "Final"},
		},
	}
}

// Format48 is the twelve-group format: 12 winners, 12 runners-up and the 8 best
// thirds. Winners and runners-up of the same group sit in opposite halves.
func Format48() *Format {
	return &Format{
		Name:       "48_team",
		Groups:     labels('A', 'L'),
		BestThirds: 8,
		FirstRound: [][]string{
			{"1A", "2B"}, {"T1", "T8"}, {"1C", "2D"}, {"1E", "2F"},
			{"1G", "2H"}, {"T2", "T7"}, {"1I", "2J"}, {"1K", "2L"},
			{"1B", "2A"}, {"T3", "T6"}, {"1D", "2C"}, {"1F", "2E"},
			{"1H", "2G"}, {"T4", "T5"}, {"1J", "2I"}, {"1L", "2K"},
		},
		Rounds: []RoundConfig{
			{"round_of_32", "Round of 32"},
			{"round_of_16", "Round of 16"},
			{"quarter_finals", "Quarter Finals"},
			{"semi_finals", "Semi Finals"},
			{models.FinalKey, "Final"},
		},
	}
}

// Registry holds the validated formats by name.
type Registry struct {
	formats map[string]*Format
}

// NewRegistry returns a registry with the built-in 32- and 48-team formats.
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]*Format)}
	for _, f := range []*Format{Format32(), Format48()} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register validates and adds (or replaces) a format.
func (r *Registry) Register(f *Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	r.formats[f.Name] = f
	return nil
}

// Get returns a format by name.
func (r *Registry) Get(name string) (*Format, error) {
	f, ok := r.formats[name]
	if !ok {
		return nil, &models.FormatError{
			Format: name,
			Reason: "unknown format, want one of " + strings.Join(r.Names(), ", "),
		}
	}
	return f, nil
}

// ForGroupCount returns the format played with n groups, if exactly one exists.
func (r *Registry) ForGroupCount(n int) (*Format, bool) {
	var found *Format
	for _, name := range r.Names() {
		if f := r.formats[name]; len(f.Groups) == n {
			if found != nil {
				return nil, false
			}
			found = f
		}
	}
	return found, found != nil
}

// Names lists the registered format names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.formats))
	for name := range r.formats {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type formatsFile struct {
	Formats []*Format `yaml:"formats"`
}

// LoadFormats reads extra formats from a YAML file and registers them.
func (r *Registry) LoadFormats(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read formats file: %w", err)
	}
	return r.LoadFormatsYAML(raw)
}

// LoadFormatsYAML registers every format of a YAML document.
func (r *Registry) LoadFormatsYAML(raw []byte) error {
	var doc formatsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("bad formats YAML: %w", err)
	}
	for _, f := range doc.Formats {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}
