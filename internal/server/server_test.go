package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhw/go-outrights/internal/metrics"
	"github.com/jhw/go-outrights/internal/source"
	"github.com/jhw/go-outrights/internal/store"
	"github.com/jhw/go-outrights/pkg/outrights"
)

type staticEvents map[string]source.LeagueEvents

func (s staticEvents) Events(league string) (source.LeagueEvents, bool) {
	cached, ok := s[league]
	return cached, ok
}

// halfSeason returns a four-team league where every pair has met once
func halfSeason() []outrights.Event {
	teams := []string{"Arsenal", "Burnley", "Chelsea", "Everton"}
	var events []outrights.Event
	day := 1
	for i, home := range teams {
		for j, away := range teams {
			if i >= j {
				continue
			}
			events = append(events, outrights.Event{
				Name:      outrights.EventName(home, away),
				Date:      fmt.Sprintf("2024-08-%02d", day),
				Score:     []int{2, 1},
				MatchOdds: &outrights.MatchOddsQuote{Prices: []float64{2.1, 3.4, 3.6}},
			})
			day++
		}
	}
	return events
}

func testParams() *outrights.SimParams {
	params := outrights.DefaultSimParams()
	params.Paths = 200
	params.MaxIterations = 20
	params.Workers = 2
	params.Seed = 7
	return params
}

func newTestServer(events EventSource) (*Server, store.Store, http.Handler) {
	st := store.NewMemoryStore()
	s := New(st, events, testParams(), time.Minute)
	return s, st, s.Router()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, _, h := newTestServer(nil)
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"outrights"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, h := newTestServer(nil)
	do(t, h, http.MethodGet, "/health", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "outrights_http_requests_total")
}

func TestSimulateStoresRun(t *testing.T) {
	_, st, h := newTestServer(nil)

	body := map[string]interface{}{
		"league":  "ENG1",
		"events":  halfSeason(),
		"markets": []outrights.Market{{Name: "Winner", Payoff: "1|3x0"}},
	}
	rec := do(t, h, http.MethodPost, "/api/v1/simulate", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)
	require.NotNil(t, resp.SimulationResult)
	assert.Len(t, resp.Teams, 4)
	assert.Len(t, resp.RemainingFixtures, 6)
	assert.Len(t, resp.Marks, 4)

	run, err := st.GetRun(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "ENG1", run.League)

	rec = do(t, h, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/runs?league=ENG1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []store.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, resp.RunID, list.Runs[0].ID)
}

func TestSimulateUnknownLeagueMetricLabel(t *testing.T) {
	_, _, h := newTestServer(nil)

	known := metrics.SimulationsTotal.WithLabelValues("ENG1", "ok")
	other := metrics.SimulationsTotal.WithLabelValues(metrics.OtherLeague, "ok")
	knownBefore, otherBefore := testutil.ToFloat64(known), testutil.ToFloat64(other)

	for _, league := range []string{"ENG1", "made-up-league"} {
		rec := do(t, h, http.MethodPost, "/api/v1/simulate", map[string]interface{}{
			"league": league,
			"events": halfSeason(),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(known)-knownBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(other)-otherBefore)
}

func TestSimulatePartialParamsKeepDefaults(t *testing.T) {
	_, _, h := newTestServer(nil)

	body := map[string]interface{}{
		"league": "ENG1",
		"events": halfSeason(),
		"params": map[string]interface{}{"paths": 100},
	}
	rec := do(t, h, http.MethodPost, "/api/v1/simulate", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSimulateUsesCachedEvents(t *testing.T) {
	events := staticEvents{"ENG1": {League: "ENG1", Season: "2425", Events: halfSeason()}}
	_, _, h := newTestServer(events)

	rec := do(t, h, http.MethodPost, "/api/v1/simulate", map[string]string{"league": "ENG1"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/simulate", map[string]string{"league": "SCO1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulateValidationErrors(t *testing.T) {
	_, _, h := newTestServer(nil)

	body := map[string]interface{}{
		"league": "ENG1",
		"events": halfSeason(),
		"markets": []outrights.Market{
			{Name: "Top/Bottom", Payoff: "1|3x0"},
			{Name: "Ghosts", Payoff: "1|0", Include: []string{"Spurs", "Arsenal"}},
		},
	}
	rec := do(t, h, http.MethodPost, "/api/v1/simulate", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, len(resp.Fields), 2)
}

func TestSimulateRejectsInvalidParams(t *testing.T) {
	_, st, h := newTestServer(nil)

	tests := []struct {
		params map[string]interface{}
		field  string
	}{
		{map[string]interface{}{"rho": 1.5}, "rho"},
		{map[string]interface{}{"grid_size": 0}, "grid_size"},
		{map[string]interface{}{"paths": 0}, "paths"},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodPost, "/api/v1/simulate", map[string]interface{}{
			"league": "ENG1",
			"events": halfSeason(),
			"params": tt.params,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, tt.field)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Fields, 1)
		assert.Equal(t, tt.field, resp.Fields[0].Field)
	}

	rec := do(t, h, http.MethodPost, "/api/v1/solve", map[string]interface{}{
		"events": halfSeason(),
		"params": map[string]interface{}{"rho": 1.5},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	runs, err := st.ListRuns(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSimulateRejectsDuplicateMarketTeams(t *testing.T) {
	_, _, h := newTestServer(nil)

	teams := outrights.ExtractTeams(halfSeason())
	rec := do(t, h, http.MethodPost, "/api/v1/simulate", map[string]interface{}{
		"league":  "ENG1",
		"events":  halfSeason(),
		"markets": []outrights.Market{{Name: "Twice", Payoff: "1|0", Include: []string{teams[0], teams[0]}}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulateBadRequests(t *testing.T) {
	_, _, h := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/simulate", map[string]string{"league": "ENG1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no events and no event source")

	rec = do(t, h, http.MethodPost, "/api/v1/simulate", map[string]interface{}{
		"league":   "ENG1",
		"events":   halfSeason(),
		"selector": "exotic",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSolve(t *testing.T) {
	_, _, h := newTestServer(nil)

	rec := do(t, h, http.MethodPost, "/api/v1/solve", map[string]interface{}{"events": halfSeason()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result outrights.SolverResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Ratings, 4)

	rec = do(t, h, http.MethodPost, "/api/v1/solve", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunNotFound(t *testing.T) {
	_, _, h := newTestServer(nil)
	rec := do(t, h, http.MethodGet, "/api/v1/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/runs/123e4567-e89b-12d3-a456-426614174000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/runs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeagueEvents(t *testing.T) {
	events := staticEvents{"ENG1": {League: "ENG1", Season: "2425", Events: halfSeason()}}
	_, _, h := newTestServer(events)

	rec := do(t, h, http.MethodGet, "/api/v1/leagues/ENG1/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cached source.LeagueEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cached))
	assert.Equal(t, "2425", cached.Season)
	assert.Len(t, cached.Events, 6)

	rec = do(t, h, http.MethodGet, "/api/v1/leagues/ENG9/events", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, _, bare := newTestServer(nil)
	rec = do(t, bare, http.MethodGet, "/api/v1/leagues/ENG1/events", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
