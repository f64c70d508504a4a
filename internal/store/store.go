// Package store persists completed simulation runs. PostgreSQL is the
// durable backend, Redis a read-through cache in front of it, and the
// in-memory store serves development and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhw/go-outrights/pkg/outrights"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one completed league simulation.
type Run struct {
	ID        string                      `json:"run_id"`
	League    string                      `json:"league"`
	CreatedAt time.Time                   `json:"created_at"`
	Result    *outrights.SimulationResult `json:"result"`
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID          string    `json:"run_id"`
	League      string    `json:"league"`
	CreatedAt   time.Time `json:"created_at"`
	SolverError float64   `json:"solver_error"`
}

// Store is the run persistence interface. Saves are last-write-wins.
type Store interface {
	// SaveRun persists a run.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by its ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns summaries, newest first. An empty league matches all.
	ListRuns(ctx context.Context, league string, limit int) ([]RunSummary, error)
}

// NewRun starts a run record for league with a fresh ID.
func NewRun(league string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		League:    league,
		CreatedAt: time.Now().UTC(),
	}
}

// ParseRunID checks that id is a UUID. Anything else cannot name a stored
// run, so it is reported as ErrNotFound.
func ParseRunID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return parsed, nil
}

// Summary returns the listing view of the run.
func (r *Run) Summary() RunSummary {
	s := RunSummary{ID: r.ID, League: r.League, CreatedAt: r.CreatedAt}
	if r.Result != nil {
		s.SolverError = r.Result.SolverError
	}
	return s
}
