package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"worldcup_sim/internal/models"
)

const (
	defaultRemoteTimeout    = 10 * time.Second
	defaultBreakerThreshold = 5
	predictPath             = "/api/predict"
)

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	HomeTeam  string `json:"home_team" binding:"required"`
	AwayTeam  string `json:"away_team" binding:"required"`
	IsNeutral *bool  `json:"is_neutral,omitempty"`
}

// Neutral reports the venue flag; matches are neutral unless stated otherwise.
func (r PredictRequest) Neutral() bool { return r.IsNeutral == nil || *r.IsNeutral }

// PredictResponse is the body returned by POST /api/predict.
type PredictResponse struct {
	HomeTeam          string  `json:"home_team"`
	AwayTeam          string  `json:"away_team"`
	HomeWinProb       float64 `json:"home_win_prob"`
	DrawProb          float64 `json:"draw_prob"`
	AwayWinProb       float64 `json:"away_win_prob"`
	ExpectedHomeGoals float64 `json:"expected_home_goals"`
	ExpectedAwayGoals float64 `json:"expected_away_goals"`
}

// errorBody is the error envelope of the prediction service.
type errorBody struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}

// RemoteClient asks another prediction service for expected goals over HTTP.
// Calls are rate limited and guarded by a circuit breaker; a 404 means the
// service does not know one of the teams and does not count as a failure.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
	threshold  uint32
}

// RemoteOption configures a RemoteClient.
type RemoteOption func(*RemoteClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(c *RemoteClient) { c.httpClient = client }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) RemoteOption {
	return func(c *RemoteClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit allows rps requests per second with the given burst. rps <= 0
// disables limiting.
func WithRateLimit(rps float64, burst int) RemoteOption {
	return func(c *RemoteClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreakerThreshold opens the circuit after n consecutive failures.
func WithBreakerThreshold(n int) RemoteOption {
	return func(c *RemoteClient) {
		if n > 0 {
			c.threshold = uint32(n)
		}
	}
}

// WithLogger sets the logger used for circuit state changes.
func WithLogger(logger *logrus.Logger) RemoteOption {
	return func(c *RemoteClient) { c.logger = logger }
}

// NewRemoteClient creates a client for the service at baseURL.
func NewRemoteClient(baseURL string, opts ...RemoteOption) *RemoteClient {
	c := &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRemoteTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     logrus.StandardLogger(),
		threshold:  defaultBreakerThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "prediction-service",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.threshold
		},
		IsSuccessful: func(err error) bool {
			var unknown *models.UnknownTeamError
			return err == nil || errors.As(err, &unknown) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Prediction service circuit breaker state changed")
		},
	})
	return c
}

// Predict fetches the full prediction for one match.
func (c *RemoteClient) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*PredictResponse), nil
}

// ExpectedGoals implements Predictor.
func (c *RemoteClient) ExpectedGoals(ctx context.Context, teamA, teamB string, neutral bool) (float64, float64, error) {
	resp, err := c.Predict(ctx, PredictRequest{HomeTeam: teamA, AwayTeam: teamB, IsNeutral: &neutral})
	if err != nil {
		return 0, 0, err
	}
	return resp.ExpectedHomeGoals, resp.ExpectedAwayGoals, nil
}

func (c *RemoteClient) post(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &models.UnknownTeamError{Team: unknownTeam(raw, req)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("prediction service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out PredictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// unknownTeam names the team a 404 refers to, when the service says which.
func unknownTeam(raw []byte, req PredictRequest) string {
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if team, ok := body.Details["team"].(string); ok && team != "" {
			return team
		}
	}
	return req.HomeTeam + " or " + req.AwayTeam
}
