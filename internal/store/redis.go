package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a primary Store with a Redis read-through cache.
// Runs are immutable once saved, so writes populate the cache directly.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// NewRedisClient parses redisURL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (s *CachedStore) SaveRun(ctx context.Context, run *Run) error {
	if err := s.primary.SaveRun(ctx, run); err != nil {
		return err
	}
	s.cacheRun(ctx, run)
	return nil
}

func (s *CachedStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if _, err := ParseRunID(id); err != nil {
		return nil, err
	}
	data, err := s.rdb.Get(ctx, runKey(id)).Bytes()
	if err == nil {
		var run Run
		if json.Unmarshal(data, &run) == nil {
			return &run, nil
		}
	}

	// Cache miss: read from primary.
	run, err := s.primary.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheRun(ctx, run)
	return run, nil
}

// ListRuns is not cached.
func (s *CachedStore) ListRuns(ctx context.Context, league string, limit int) ([]RunSummary, error) {
	return s.primary.ListRuns(ctx, league, limit)
}

func (s *CachedStore) cacheRun(ctx context.Context, run *Run) {
	if data, err := json.Marshal(run); err == nil {
		s.rdb.Set(ctx, runKey(run.ID), data, s.ttl)
	}
}

func runKey(id string) string { return fmt.Sprintf("outrights:run:%s", id) }
