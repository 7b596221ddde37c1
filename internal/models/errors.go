package models

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every error caused by malformed tournament input.
var ErrValidation = errors.New("validation error")

// GroupSizeError is returned when a group does not hold exactly 4 teams.
type GroupSizeError struct {
	Group string
	Size  int
}

func (e *GroupSizeError) Error() string {
	return fmt.Sprintf("group %s must have exactly %d teams, got %d", e.Group, GroupSize, e.Size)
}

func (e *GroupSizeError) Is(target error) bool { return target == ErrValidation }

// SeedingMismatchError is returned when the seeded team count does not fit the
// first knockout round of a format.
type SeedingMismatchError struct {
	Format   string
	Expected int
	Got      int
}

func (e *SeedingMismatchError) Error() string {
	return fmt.Sprintf("format %s expects %d seeded teams, got %d", e.Format, e.Expected, e.Got)
}

func (e *SeedingMismatchError) Is(target error) bool { return target == ErrValidation }

// FormatError reports an unknown format or group labels that do not match it.
type FormatError struct {
	Format string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %q: %s", e.Format, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrValidation }

// DuplicateTeamError is returned when a team appears twice in the group draw.
type DuplicateTeamError struct {
	Team  string
	Group string
}

func (e *DuplicateTeamError) Error() string {
	return fmt.Sprintf("team %s appears more than once (again in group %s)", e.Team, e.Group)
}

func (e *DuplicateTeamError) Is(target error) bool { return target == ErrValidation }

// UnknownTeamError is returned when no expected-goals estimate exists for a team.
type UnknownTeamError struct {
	Team string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team %q", e.Team)
}

// PredictionUnavailableError wraps a failure of the expected-goals collaborator
// that is not attributable to an unknown team.
type PredictionUnavailableError struct {
	TeamA string
	TeamB string
	Err   error
}

func (e *PredictionUnavailableError) Error() string {
	return fmt.Sprintf("prediction unavailable for %s vs %s: %v", e.TeamA, e.TeamB, e.Err)
}

func (e *PredictionUnavailableError) Unwrap() error { return e.Err }

// RangeError is returned when a numeric parameter is outside its allowed bounds.
type RangeError struct {
	Param string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s=%d out of range [%d, %d]", e.Param, e.Value, e.Min, e.Max)
}

// InvalidParameterError is returned for a negative or non-finite expected-goals value.
type InvalidParameterError struct {
	Param string
	Value float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %v (must be a finite value >= 0)", e.Param, e.Value)
}
