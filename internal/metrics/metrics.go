// Package metrics provides Prometheus instrumentation for the outrights service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SimulationsTotal counts league simulations, partitioned by league and outcome.
	SimulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outrights_simulations_total",
		Help: "Total number of league simulations run",
	}, []string{"league", "status"})

	// SimulationDuration tracks end-to-end simulation latency.
	SimulationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outrights_simulation_duration_seconds",
		Help:    "League simulation duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"league"})

	// SolverError records the RMS error of each ratings solve.
	SolverError = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outrights_solver_error",
		Help:    "Mean RMS error of calibrated ratings against market probabilities",
		Buckets: []float64{0.005, 0.01, 0.02, 0.03, 0.05, 0.075, 0.1, 0.2},
	}, []string{"strategy"})

	// SolverIterations records optimiser generations used per solve.
	SolverIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outrights_solver_iterations",
		Help:    "Optimiser iterations per ratings solve",
		Buckets: prometheus.ExponentialBuckets(10, 2, 8),
	}, []string{"strategy"})

	// StoredRuns tracks runs written to the store.
	StoredRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outrights_stored_runs_total",
		Help: "Simulation runs written to the run store",
	})

	// SourceFetches counts football-data requests by league and outcome.
	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outrights_source_fetches_total",
		Help: "Event source fetches",
	}, []string{"league", "status"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outrights_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outrights_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0, 30.0},
	}, []string{"method", "path"})
)

// OtherLeague labels simulations for leagues that were never registered.
const OtherLeague = "other"

var (
	leaguesMu    sync.RWMutex
	knownLeagues = make(map[string]bool)
)

// RegisterLeagues adds leagues that get their own label value.
func RegisterLeagues(leagues ...string) {
	leaguesMu.Lock()
	defer leaguesMu.Unlock()
	for _, league := range leagues {
		knownLeagues[league] = true
	}
}

// LeagueLabel keeps league label cardinality bounded to registered leagues.
func LeagueLabel(league string) string {
	leaguesMu.RLock()
	defer leaguesMu.RUnlock()
	if knownLeagues[league] {
		return league
	}
	return OtherLeague
}

// ObserveSimulation records the outcome of one league simulation.
func ObserveSimulation(league string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	label := LeagueLabel(league)
	SimulationsTotal.WithLabelValues(label, status).Inc()
	if err == nil {
		SimulationDuration.WithLabelValues(label).Observe(duration.Seconds())
	}
}

// ObserveSolve records the error and iteration count of one ratings solve.
func ObserveSolve(strategy string, solverError float64, iterations int) {
	SolverError.WithLabelValues(strategy).Observe(solverError)
	SolverIterations.WithLabelValues(strategy).Observe(float64(iterations))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern rather than raw path keeps label cardinality bounded
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
