package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"worldcup_sim/internal/models"
	"worldcup_sim/internal/presets"
)

// Error codes of ErrorResponse.
const (
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeRange                 = "RANGE_ERROR"
	ErrCodeInvalidParameter      = "INVALID_PARAMETER"
	ErrCodeUnknownTeam           = "UNKNOWN_TEAM"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodePredictionUnavailable = "PREDICTION_UNAVAILABLE"
	ErrCodeTimeout               = "TIMEOUT"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SendError maps err onto a status code and writes the error body.
func SendError(c *gin.Context, err error) {
	status, code := classify(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Details: details(err),
	})
}

// SendBadRequest rejects a body that could not be decoded.
func SendBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error: "invalid request body: " + err.Error(),
		Code:  ErrCodeInvalidRequest,
	})
}

func classify(err error) (int, string) {
	var (
		unknown     *models.UnknownTeamError
		rangeErr    *models.RangeError
		invalid     *models.InvalidParameterError
		unavailable *models.PredictionUnavailableError
	)
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, ErrCodeUnknownTeam
	case errors.Is(err, presets.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.As(err, &rangeErr):
		return http.StatusBadRequest, ErrCodeRange
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrCodeInvalidParameter
	case errors.As(err, &unavailable),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, ErrCodePredictionUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

func details(err error) map[string]interface{} {
	var (
		groupSize   *models.GroupSizeError
		seeding     *models.SeedingMismatchError
		format      *models.FormatError
		duplicate   *models.DuplicateTeamError
		unknown     *models.UnknownTeamError
		rangeErr    *models.RangeError
		invalid     *models.InvalidParameterError
		unavailable *models.PredictionUnavailableError
	)
	switch {
	case errors.As(err, &groupSize):
		return map[string]interface{}{"group": groupSize.Group, "size": groupSize.Size}
	case errors.As(err, &seeding):
		return map[string]interface{}{"format": seeding.Format, "expected": seeding.Expected, "got": seeding.Got}
	case errors.As(err, &format):
		return map[string]interface{}{"format": format.Format, "reason": format.Reason}
	case errors.As(err, &duplicate):
		return map[string]interface{}{"team": duplicate.Team, "group": duplicate.Group}
	case errors.As(err, &unknown):
		return map[string]interface{}{"team": unknown.Team}
	case errors.As(err, &rangeErr):
		return map[string]interface{}{"param": rangeErr.Param, "value": rangeErr.Value, "min": rangeErr.Min, "max": rangeErr.Max}
	case errors.As(err, &invalid):
		return map[string]interface{}{"param": invalid.Param, "value": fmt.Sprint(invalid.Value)}
	case errors.As(err, &unavailable):
		return map[string]interface{}{"team_a": unavailable.TeamA, "team_b": unavailable.TeamB}
	}
	return nil
}
