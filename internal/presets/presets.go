// Package presets ships ready-made tournament draws.
package presets

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"

	yaml "gopkg.in/yaml.v2"

	"worldcup_sim/internal/bracket"
)

//go:embed data/*.yaml
var files embed.FS

// ErrNotFound is returned for an unknown preset id.
var ErrNotFound = errors.New("preset not found")

// Preset is one stored tournament draw.
type Preset struct {
	ID     string              `yaml:"id" json:"id"`
	Name   string              `yaml:"name" json:"name"`
	Format string              `yaml:"format" json:"format"`
	Seed   int64               `yaml:"seed" json:"seed"`
	Groups map[string][]string `yaml:"groups" json:"groups"`
}

// Summary is the listing entry of a preset.
type Summary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Format string `json:"format"`
}

// Store holds the presets by id.
type Store struct {
	presets map[string]*Preset
}

// Load parses the embedded presets. Presets without a format get the one
// registered for their group count.
func Load(formats *bracket.Registry) (*Store, error) {
	entries, err := files.ReadDir("data")
	if err != nil {
		return nil, err
	}
	s := &Store{presets: make(map[string]*Preset, len(entries))}
	for _, e := range entries {
		raw, err := files.ReadFile(path.Join("data", e.Name()))
		if err != nil {
			return nil, err
		}
		var p Preset
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("preset %s: %w", e.Name(), err)
		}
		if p.Format == "" {
			f, ok := formats.ForGroupCount(len(p.Groups))
			if !ok {
				return nil, fmt.Errorf("preset %s: no format for %d groups", p.ID, len(p.Groups))
			}
			p.Format = f.Name
		}
		s.presets[p.ID] = &p
	}
	return s, nil
}

// List returns every preset, sorted by id.
func (s *Store) List() []Summary {
	out := make([]Summary, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, Summary{ID: p.ID, Name: p.Name, Format: p.Format})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a preset by id.
func (s *Store) Get(id string) (*Preset, error) {
	p, ok := s.presets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, nil
}

// IDs lists the preset ids.
func (s *Store) IDs() []string {
	out := make([]string, 0, len(s.presets))
	for id := range s.presets {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
