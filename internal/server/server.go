// Package server exposes the outrights engine over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/jhw/go-outrights/internal/logger"
	"github.com/jhw/go-outrights/internal/metrics"
	"github.com/jhw/go-outrights/internal/source"
	"github.com/jhw/go-outrights/internal/store"
	"github.com/jhw/go-outrights/pkg/outrights"
)

// EventSource serves the cached current-season events for a league
type EventSource interface {
	Events(league string) (source.LeagueEvents, bool)
}

// Server handles the HTTP API. Events may be nil when no refresher runs.
type Server struct {
	store   store.Store
	events  EventSource
	params  *outrights.SimParams
	timeout time.Duration
}

// New creates a server. params are the defaults for requests that carry none.
func New(st store.Store, events EventSource, params *outrights.SimParams, timeout time.Duration) *Server {
	if params == nil {
		params = outrights.DefaultSimParams()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	metrics.RegisterLeagues(source.Leagues()...)
	return &Server{
		store:   st,
		events:  events,
		params:  params,
		timeout: timeout,
	}
}

// Router builds the chi router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "outrights"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.Solve)
		r.Post("/simulate", s.Simulate)

		r.Get("/runs", s.ListRuns)
		r.Get("/runs/{runID}", s.GetRun)

		r.Get("/leagues/{league}/events", s.LeagueEvents)
	})

	return r
}

// requestLogger logs each request with logrus once it completes
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		entry := logger.WithHTTPContext(r.Method, r.URL.Path, middleware.GetReqID(r.Context())).WithFields(logrus.Fields{
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
			return
		}
		entry.Debug("Request completed")
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error  string                      `json:"error"`
	Fields []outrights.ValidationError `json:"fields,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Error: message})
}
