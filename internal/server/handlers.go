package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jhw/go-outrights/internal/logger"
	"github.com/jhw/go-outrights/internal/metrics"
	"github.com/jhw/go-outrights/internal/store"
	"github.com/jhw/go-outrights/pkg/outrights"
)

// SimulateResponse is a stored simulation run
type SimulateResponse struct {
	RunID string `json:"run_id"`
	*outrights.SimulationResult
}

// Solve handles POST /api/v1/solve.
func (s *Server) Solve(w http.ResponseWriter, r *http.Request) {
	req := outrights.SolveRequest{Params: s.defaultParams()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Events) == 0 {
		writeError(w, "events are required", http.StatusBadRequest)
		return
	}
	if req.Params == nil {
		req.Params = s.defaultParams()
	}

	result, err := outrights.Solve(r.Context(), req, logger.GetLogger())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	metrics.ObserveSolve(req.Params.Strategy, result.Error, result.Iterations)
	writeJSON(w, http.StatusOK, result)
}

// Simulate handles POST /api/v1/simulate. Requests without events use the
// cached current season for their league.
func (s *Server) Simulate(w http.ResponseWriter, r *http.Request) {
	req := outrights.SimulationRequest{Params: s.defaultParams()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Events) == 0 {
		if req.League == "" || s.events == nil {
			writeError(w, "events are required", http.StatusBadRequest)
			return
		}
		cached, ok := s.events.Events(req.League)
		if !ok {
			writeError(w, "no events available for league "+req.League, http.StatusNotFound)
			return
		}
		req.Events = cached.Events
	}
	if req.Params == nil {
		req.Params = s.defaultParams()
	}

	run := store.NewRun(req.League)
	log := logger.WithRun(run.ID, req.League)

	start := time.Now()
	result, err := outrights.Simulate(r.Context(), req, log)
	metrics.ObserveSimulation(req.League, time.Since(start), err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	metrics.ObserveSolve(req.Params.Strategy, result.SolverError, result.Solver.Iterations)

	run.Result = result
	if err := s.store.SaveRun(r.Context(), run); err != nil {
		log.WithError(err).Error("Failed to save run")
		writeError(w, "failed to save run", http.StatusInternalServerError)
		return
	}
	metrics.StoredRuns.Inc()

	writeJSON(w, http.StatusCreated, SimulateResponse{RunID: run.ID, SimulationResult: result})
}

// ListRuns handles GET /api/v1/runs?league=&limit=.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), r.URL.Query().Get("league"), limit)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list runs")
		writeError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRun handles GET /api/v1/runs/{runID}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.WithRun(runID, "").WithError(err).Error("Failed to load run")
		writeError(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// LeagueEvents handles GET /api/v1/leagues/{league}/events.
func (s *Server) LeagueEvents(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	if s.events == nil {
		writeError(w, "event source disabled", http.StatusNotFound)
		return
	}
	cached, ok := s.events.Events(league)
	if !ok {
		writeError(w, "no events available for league "+league, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cached)
}

// defaultParams returns a copy of the server defaults for a request to
// decode over
func (s *Server) defaultParams() *outrights.SimParams {
	p := *s.params
	return &p
}

// writeEngineError maps engine failures onto HTTP statuses
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var verrs outrights.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Fields: verrs.Errors})
	case outrights.IsInputError(err):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, "simulation timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send
		logger.GetLogger().WithError(err).Debug("Request cancelled")
	default:
		logger.GetLogger().WithError(err).Error("Engine failure")
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}
