package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/v1/runs/{runID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/runs/{runID}", "404"))
	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/runs/{runID}", "404"))
	assert.Equal(t, 2.0, after-before)
}

func TestObserveSimulation(t *testing.T) {
	RegisterLeagues("TEST1")
	ok := SimulationsTotal.WithLabelValues("TEST1", "ok")
	failed := SimulationsTotal.WithLabelValues("TEST1", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveSimulation("TEST1", 2*time.Second, nil)
	ObserveSimulation("TEST1", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(ok)-okBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(failed)-failedBefore)
}

func TestObserveSimulationUnknownLeague(t *testing.T) {
	RegisterLeagues("TEST2")
	assert.Equal(t, "TEST2", LeagueLabel("TEST2"))
	assert.Equal(t, OtherLeague, LeagueLabel("x-random-league-1234"))

	other := SimulationsTotal.WithLabelValues(OtherLeague, "ok")
	before := testutil.ToFloat64(other)
	ObserveSimulation("x-random-league-1234", time.Second, nil)
	ObserveSimulation("x-random-league-5678", time.Second, nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(other)-before)
}
