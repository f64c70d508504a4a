package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	id           UUID PRIMARY KEY,
	league       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	solver_error DOUBLE PRECISION NOT NULL,
	result       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS simulation_runs_league_created_idx
	ON simulation_runs (league, created_at DESC);
`

// PostgresStore implements Store on PostgreSQL. Results are kept as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect opens a pool against databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the runs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	summary := run.Summary()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO simulation_runs (id, league, created_at, solver_error, result)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET league = EXCLUDED.league, created_at = EXCLUDED.created_at,
		     solver_error = EXCLUDED.solver_error, result = EXCLUDED.result`,
		run.ID, run.League, run.CreatedAt, summary.SolverError, data,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	runID, err := ParseRunID(id)
	if err != nil {
		return nil, err
	}

	var run Run
	var data []byte
	err = s.pool.QueryRow(ctx,
		`SELECT id::TEXT, league, created_at, result
		 FROM simulation_runs WHERE id = $1`, runID.String()).
		Scan(&run.ID, &run.League, &run.CreatedAt, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &run.Result); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, league string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, league, created_at, solver_error
		 FROM simulation_runs
		 WHERE $1 = '' OR league = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2`, league, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.League, &s.CreatedAt, &s.SolverError); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
