package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"
)

// DefaultTournamentSimulations is used when a tournament file leaves
// numberOfSimulations unset.
const DefaultTournamentSimulations = 10_000

// Tournament is a CLI tournament file.
type Tournament struct {
	NumberOfSimulations int                 `json:"numberOfSimulations" yaml:"numberOfSimulations"`
	Format              string              `json:"format" yaml:"format"`
	Groups              map[string][]string `json:"groups" yaml:"groups"`
	Seed                int64               `json:"seed" yaml:"seed"`
	PRNG                string              `json:"prng" yaml:"prng"`
	Elo                 map[string]float64  `json:"elo" yaml:"elo"`
	HomeAdvantage       float64             `json:"homeAdvantage" yaml:"homeAdvantage"`
	GoalBase            float64             `json:"goalBase" yaml:"goalBase"`
	GoalScale           float64             `json:"goalScale" yaml:"goalScale"`
	Formats             string              `json:"formats" yaml:"formats"`
}

// LoadTournament reads a tournament file, JSON or YAML by extension. A
// relative formats path is resolved against the file's directory.
func LoadTournament(path string) (*Tournament, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", path, err)
	}
	var t Tournament

	ext := filepath.Ext(path)
	switch ext {
	case ".json":
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("bad JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("bad YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if t.NumberOfSimulations <= 0 {
		t.NumberOfSimulations = DefaultTournamentSimulations
	}
	if t.Formats != "" && !filepath.IsAbs(t.Formats) {
		t.Formats = filepath.Join(filepath.Dir(path), t.Formats)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tournament) validate() error {
	if len(t.Groups) == 0 {
		return fmt.Errorf("config error: 'groups' cannot be empty")
	}
	for label, teams := range t.Groups {
		if len(teams) == 0 {
			return fmt.Errorf("config error: 'groups.%s' cannot be empty", label)
		}
	}
	switch t.PRNG {
	case "", "math", "xorshift32":
	default:
		return fmt.Errorf("config error: 'prng' must be 'math' or 'xorshift32', got %q", t.PRNG)
	}
	for team, r := range t.Elo {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("config error: 'elo.%s' is not a number", team)
		}
	}
	if t.HomeAdvantage < 0 {
		return fmt.Errorf("config error: 'homeAdvantage' cannot be negative")
	}
	if t.GoalBase < 0 {
		return fmt.Errorf("config error: 'goalBase' cannot be negative")
	}
	if t.GoalScale < 0 {
		return fmt.Errorf("config error: 'goalScale' cannot be negative")
	}
	return nil
}
