package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup_sim/internal/api/handlers"
	"worldcup_sim/internal/bracket"
	"worldcup_sim/internal/metrics"
	"worldcup_sim/internal/models"
	"worldcup_sim/internal/prediction"
	"worldcup_sim/internal/presets"
	"worldcup_sim/internal/teams"
	"worldcup_sim/internal/tournament"
)

type testServer struct {
	router  *gin.Engine
	handler *handlers.Handler
	presets *presets.Store
}

func newTestServer(t *testing.T, predictor prediction.Predictor) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	roster, err := teams.Default()
	require.NoError(t, err)
	if predictor == nil {
		predictor, err = prediction.NewEloModel(roster.Ratings(), prediction.EloConfig{})
		require.NoError(t, err)
	}
	formats := bracket.NewRegistry()
	store, err := presets.Load(formats)
	require.NoError(t, err)
	collector := metrics.NewCollector()

	h := handlers.New(handlers.Deps{
		Simulator: tournament.New(formats, tournament.Options{
			Workers:        2,
			MaxSimulations: 1000,
			Logger:         logger,
			Observer:       collector,
		}),
		Predictor:          predictor,
		Roster:             roster,
		Presets:            store,
		Metrics:            collector,
		Logger:             logger,
		Model:              handlers.ModelInfo{Key: "elo", Type: "elo"},
		DefaultSimulations: 20,
		PRNG:               "xorshift32",
	})
	return &testServer{
		router:  NewRouter(h, []string{"http://localhost:5173"}),
		handler: h,
		presets: store,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func sum(m map[string]int) int {
	total := 0
	for _, c := range m {
		total += c
	}
	return total
}

// wc2022Body spells the 2022 draw the way a client might: "Group X" labels and
// lower-case team names.
func (s *testServer) wc2022Body(t *testing.T) map[string]interface{} {
	t.Helper()
	p, err := s.presets.Get("wc2022")
	require.NoError(t, err)
	groups := make(map[string][]string, len(p.Groups))
	for label, names := range p.Groups {
		lower := make([]string, len(names))
		for i, n := range names {
			lower[i] = strings.ToLower(n)
		}
		groups["Group "+label] = lower
	}
	return map[string]interface{}{"groups": groups}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/", "/health"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, "ok", body["status"])
	}
}

func TestGetTeams(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/teams", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.Team
	decode(t, w, &got)
	assert.Len(t, got, s.handler.Roster.Len())
	assert.Equal(t, "Spain", got[0].Name)
	assert.Equal(t, "https://flagcdn.com/w80/es.png", got[0].FlagURL)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].EloRating, got[i].EloRating)
	}
}

func TestPredictMatch(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"home_team": "spain",
		"away_team": "Haiti",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got prediction.PredictResponse
	decode(t, w, &got)
	assert.Equal(t, "Spain", got.HomeTeam)
	assert.Equal(t, "Haiti", got.AwayTeam)
	assert.Greater(t, got.HomeWinProb, got.AwayWinProb)
	assert.Greater(t, got.ExpectedHomeGoals, got.ExpectedAwayGoals)
	assert.InDelta(t, 1.0, got.HomeWinProb+got.DrawProb+got.AwayWinProb, 1e-6)
}

func TestPredictMatchErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"unknown team", map[string]string{"home_team": "Atlantis", "away_team": "Spain"}, http.StatusNotFound, handlers.ErrCodeUnknownTeam},
		{"missing team", map[string]string{"home_team": "Spain"}, http.StatusBadRequest, handlers.ErrCodeInvalidRequest},
		{"same team", map[string]string{"home_team": "Spain", "away_team": "spain"}, http.StatusBadRequest, handlers.ErrCodeValidation},
		{"malformed", "{", http.StatusBadRequest, handlers.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/predict", tt.body)
			assert.Equal(t, tt.status, w.Code)
			var body handlers.ErrorResponse
			decode(t, w, &body)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestSimulate(t *testing.T) {
	s := newTestServer(t, nil)
	body := s.wc2022Body(t)
	body["seed"] = 7

	w := s.do(t, http.MethodPost, "/api/simulate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got tournament.Result
	decode(t, w, &got)
	assert.Equal(t, "32_team", got.Format)
	assert.Equal(t, 20, got.NumSimulations)
	assert.Equal(t, int64(7), got.Seed)
	assert.Equal(t, 20, sum(got.Champions))
	assert.Equal(t, 40, sum(got.Finalists))
	assert.Equal(t, 80, sum(got.Semifinalists))
	assert.Len(t, got.GroupResults, 8)
	assert.Len(t, got.GroupResults["E"], 4)
	require.NotNil(t, got.Bracket)
	assert.Nil(t, got.Bracket.Round("round_of_32"))
	assert.Len(t, got.Bracket.Round("round_of_16"), 8)
	assert.NotEmpty(t, got.Bracket.Champion)

	var raw struct {
		Bracket map[string]json.RawMessage `json:"bracket"`
	}
	decode(t, w, &raw)
	assert.Contains(t, raw.Bracket, "round_of_16")
	assert.NotContains(t, raw.Bracket, "round_of_32")

	again := s.do(t, http.MethodPost, "/api/simulate", body)
	require.Equal(t, http.StatusOK, again.Code)
	var second tournament.Result
	decode(t, again, &second)
	assert.Equal(t, got.Champions, second.Champions)
	assert.Equal(t, got.Semifinalists, second.Semifinalists)
	assert.NotEqual(t, got.ID, second.ID)
}

func TestSimulateErrors(t *testing.T) {
	s := newTestServer(t, nil)

	withBody := func(edit func(body map[string]interface{})) map[string]interface{} {
		body := s.wc2022Body(t)
		edit(body)
		return body
	}
	groups := func(body map[string]interface{}) map[string][]string {
		return body["groups"].(map[string][]string)
	}

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
		detail map[string]interface{}
	}{
		{
			name:   "zero simulations",
			body:   withBody(func(b map[string]interface{}) { b["n_sims"] = 0 }),
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeRange,
			detail: map[string]interface{}{"param": "n_sims", "value": 0.0, "min": 1.0, "max": 1000.0},
		},
		{
			name:   "too many simulations",
			body:   withBody(func(b map[string]interface{}) { b["n_sims"] = 1001 }),
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeRange,
		},
		{
			name: "short group",
			body: withBody(func(b map[string]interface{}) {
				groups(b)["Group C"] = groups(b)["Group C"][:3]
			}),
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeValidation,
			detail: map[string]interface{}{"group": "C", "size": 3.0},
		},
		{
			name: "unknown team",
			body: withBody(func(b map[string]interface{}) {
				groups(b)["Group A"] = []string{"Qatar", "Ecuador", "Senegal", "Atlantis"}
			}),
			status: http.StatusNotFound,
			code:   handlers.ErrCodeUnknownTeam,
			detail: map[string]interface{}{"team": "Atlantis"},
		},
		{
			name: "team drawn twice",
			body: withBody(func(b map[string]interface{}) {
				groups(b)["Group A"] = []string{"Qatar", "Ecuador", "Senegal", "Spain"}
			}),
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeValidation,
		},
		{
			name:   "unknown format",
			body:   withBody(func(b map[string]interface{}) { b["format"] = "64_team" }),
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeValidation,
		},
		{
			name:   "wrong format for groups",
			body:   withBody(func(b map[string]interface{}) { b["format"] = "48_team" }),
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeValidation,
		},
		{
			name: "same label twice",
			body: withBody(func(b map[string]interface{}) {
				groups(b)["a"] = []string{"Italy", "Norway", "Turkey", "Ukraine"}
			}),
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeValidation,
		},
		{
			name:   "no groups",
			body:   map[string]interface{}{"n_sims": 10},
			status: http.StatusBadRequest,
			code:   handlers.ErrCodeInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/simulate", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var body handlers.ErrorResponse
			decode(t, w, &body)
			assert.Equal(t, tt.code, body.Code)
			if tt.detail != nil {
				assert.Equal(t, tt.detail, body.Details)
			}
		})
	}
}

func TestSimulatePredictorFailures(t *testing.T) {
	unavailable := prediction.PredictorFunc(func(context.Context, string, string, bool) (float64, float64, error) {
		return 0, 0, io.ErrUnexpectedEOF
	})
	s := newTestServer(t, unavailable)
	w := s.do(t, http.MethodPost, "/api/simulate", s.wc2022Body(t))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	slow := prediction.PredictorFunc(func(context.Context, string, string, bool) (float64, float64, error) {
		return 0, 0, context.DeadlineExceeded
	})
	s = newTestServer(t, slow)
	w = s.do(t, http.MethodPost, "/api/simulate", s.wc2022Body(t))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	var body handlers.ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, handlers.ErrCodeTimeout, body.Code)
}

func TestPresets(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Presets []presets.Summary `json:"presets"`
	}
	decode(t, w, &list)
	assert.Equal(t, s.presets.List(), list.Presets)

	w = s.do(t, http.MethodGet, "/api/presets/wc2026", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got handlers.PresetResponse
	decode(t, w, &got)
	assert.Equal(t, "wc2026", got.ID)
	assert.Equal(t, "48_team", got.Format)
	assert.Len(t, got.Groups, 12)
	assert.Equal(t, 20, sum(got.Champions))
	assert.Equal(t, int64(2026), got.Metadata.Seed)
	require.NotNil(t, got.Bracket)
	assert.Len(t, got.Bracket.Round("round_of_32"), 16)

	again := s.do(t, http.MethodGet, "/api/presets/wc2026", nil)
	var second handlers.PresetResponse
	decode(t, again, &second)
	assert.Equal(t, got.Champions, second.Champions)

	w = s.do(t, http.MethodGet, "/api/presets/wc1930", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body handlers.ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, handlers.ErrCodeNotFound, body.Code)
}

func TestModelInfo(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/model-info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, map[string]interface{}{"type": "elo"}, body["model"])
	assert.Equal(t, []interface{}{"32_team", "48_team"}, body["formats"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/api/teams", nil)
	s.do(t, http.MethodPost, "/api/simulate", s.wc2022Body(t))

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `worldcup_http_requests_total{method="GET",route="/api/teams",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `worldcup_simulation_runs_total{format="32_team",status="ok"} 1`)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/simulate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
