package models

import (
	"encoding/json"
	"fmt"
)

// GroupSize is the number of teams in every group.
const GroupSize = 4

// Draw is the MatchResult winner of a level group match.
const Draw = "draw"

// Team carries display metadata only; simulation logic keys on Name.
type Team struct {
	Name      string  `json:"name" yaml:"name"`
	ISOCode   string  `json:"iso_code" yaml:"iso"`
	EloRating float64 `json:"elo_rating" yaml:"elo"`
	FlagURL   string  `json:"flag_url" yaml:"-"`
}

// MatchResult is one played (or predicted) fixture.
type MatchResult struct {
	TeamA       string  `json:"team_a"`
	TeamB       string  `json:"team_b"`
	GoalsA      float64 `json:"goals_a"`
	GoalsB      float64 `json:"goals_b"`
	Winner      string  `json:"winner"`
	WinProb     float64 `json:"win_prob"`
	AdvanceProb float64 `json:"advance_prob,omitempty"`
}

// Loser returns the eliminated side of a decided match.
func (m MatchResult) Loser() string {
	if m.Winner == m.TeamA {
		return m.TeamB
	}
	return m.TeamA
}

// GroupStanding is one row of a resolved group table. Rank is 0-based.
type GroupStanding struct {
	Team           string  `json:"team"`
	Points         int     `json:"points"`
	GoalDifference float64 `json:"gd"`
	GoalsFor       float64 `json:"gf"`
	GoalsAgainst   float64 `json:"ga"`
	Rank           int     `json:"rank"`
	// Order is the team's position in the group as drawn; last tie-breaker.
	Order int `json:"-"`
}

// Round is one knockout round. Key is the wire name (e.g. "round_of_16").
type Round struct {
	Key     string        `json:"key"`
	Name    string        `json:"name"`
	Matches []MatchResult `json:"matches"`
}

// Teams lists every participant of the round in bracket order.
func (r Round) Teams() []string {
	out := make([]string, 0, 2*len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.TeamA, m.TeamB)
	}
	return out
}

// FinalKey is the key of the last round of every format.
const FinalKey = "final"

// Bracket is the knockout stage of one tournament. Formats differ only in which
// rounds are present; the final is always the last round and holds one match.
type Bracket struct {
	Format   string
	Rounds   []Round
	Champion string
}

// Round returns the matches of the round with the given key, or nil.
func (b *Bracket) Round(key string) []MatchResult {
	for _, r := range b.Rounds {
		if r.Key == key {
			return r.Matches
		}
	}
	return nil
}

// Final returns the single match of the last round.
func (b *Bracket) Final() MatchResult {
	if len(b.Rounds) == 0 || len(b.Rounds[len(b.Rounds)-1].Matches) == 0 {
		return MatchResult{}
	}
	return b.Rounds[len(b.Rounds)-1].Matches[0]
}

// Finalists returns the two teams of the final.
func (b *Bracket) Finalists() []string {
	if len(b.Rounds) == 0 {
		return nil
	}
	return b.Rounds[len(b.Rounds)-1].Teams()
}

// Semifinalists returns the four teams of the round before the final.
func (b *Bracket) Semifinalists() []string {
	if len(b.Rounds) < 2 {
		return nil
	}
	return b.Rounds[len(b.Rounds)-2].Teams()
}

// roundsField lists the keys and names of the rounds in play order.
const roundsField = "rounds"

type roundInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// MarshalJSON flattens rounds into keyed fields:
// {"round_of_32": [...], ..., "final": {...}, "champion": "...", "rounds": [...]}.
func (b Bracket) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Rounds)+3)
	out["format"] = b.Format
	out["champion"] = b.Champion
	info := make([]roundInfo, 0, len(b.Rounds))
	for _, r := range b.Rounds {
		info = append(info, roundInfo{Key: r.Key, Name: r.Name})
		if r.Key == FinalKey {
			if len(r.Matches) != 1 {
				return nil, fmt.Errorf("final must hold exactly one match, got %d", len(r.Matches))
			}
			out[r.Key] = r.Matches[0]
			continue
		}
		out[r.Key] = r.Matches
	}
	out[roundsField] = info
	return json.Marshal(out)
}

// standardRounds are read when a document carries no round list.
var standardRounds = []roundInfo{
	{"round_of_64", "Round of 64"},
	{"round_of_32", "Round of 32"},
	{"round_of_16", "Round of 16"},
	{"quarter_finals", "Quarter Finals"},
	{"semi_finals", "Semi Finals"},
	{FinalKey, "Final"},
}

// UnmarshalJSON is the inverse of MarshalJSON. Documents without a round list
// are read with the standard round keys.
func (b *Bracket) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Bracket{}
	if v, ok := raw["format"]; ok {
		if err := json.Unmarshal(v, &b.Format); err != nil {
			return fmt.Errorf("bracket format: %w", err)
		}
	}
	if v, ok := raw["champion"]; ok {
		if err := json.Unmarshal(v, &b.Champion); err != nil {
			return fmt.Errorf("bracket champion: %w", err)
		}
	}
	order := standardRounds
	if v, ok := raw[roundsField]; ok {
		order = nil
		if err := json.Unmarshal(v, &order); err != nil {
			return fmt.Errorf("bracket rounds: %w", err)
		}
	}
	for _, ro := range order {
		v, ok := raw[ro.Key]
		if !ok || string(v) == "null" {
			continue
		}
		r := Round{Key: ro.Key, Name: ro.Name}
		if ro.Key == FinalKey {
			var m MatchResult
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("bracket %s: %w", ro.Key, err)
			}
			r.Matches = []MatchResult{m}
		} else if err := json.Unmarshal(v, &r.Matches); err != nil {
			return fmt.Errorf("bracket %s: %w", ro.Key, err)
		}
		b.Rounds = append(b.Rounds, r)
	}
	return nil
}
