package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jhw/go-outrights/pkg/outrights"
)

// Fetcher downloads one league season
type Fetcher interface {
	FetchSeason(ctx context.Context, league, season string) ([]outrights.Event, error)
}

// LeagueEvents is a cached league season
type LeagueEvents struct {
	League    string            `json:"league"`
	Season    string            `json:"season"`
	UpdatedAt time.Time         `json:"updated_at"`
	Events    []outrights.Event `json:"events"`
}

// Refresher keeps the current season's events for a set of leagues in
// memory, optionally mirroring them to eventsDir, and refreshes them on a
// cron schedule.
type Refresher struct {
	fetcher   Fetcher
	season    string
	leagues   []string
	eventsDir string
	logger    logrus.FieldLogger

	mu     sync.RWMutex
	cache  map[string]LeagueEvents
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRefresher creates a refresher. An empty eventsDir disables mirroring.
func NewRefresher(fetcher Fetcher, season string, leagues []string, eventsDir string, logger logrus.FieldLogger) *Refresher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		fetcher:   fetcher,
		season:    season,
		leagues:   append([]string(nil), leagues...),
		eventsDir: eventsDir,
		logger:    logger.WithField("component", "refresher"),
		cache:     make(map[string]LeagueEvents),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Refresh fetches every league. Failed leagues keep their previous events;
// the returned error joins the failures.
func (r *Refresher) Refresh(ctx context.Context) error {
	var failed []string
	var lastErr error
	for _, league := range r.leagues {
		if err := r.RefreshLeague(ctx, league); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed = append(failed, league)
			lastErr = err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("refresh failed for %v: %w", failed, lastErr)
	}
	return nil
}

// RefreshLeague fetches a single league and replaces its cached events
func (r *Refresher) RefreshLeague(ctx context.Context, league string) error {
	start := time.Now()
	events, err := r.fetcher.FetchSeason(ctx, league, r.season)
	if err != nil {
		r.logger.WithError(err).WithField("league", league).Warn("Failed to refresh league events")
		return err
	}

	r.mu.Lock()
	r.cache[league] = LeagueEvents{
		League:    league,
		Season:    r.season,
		UpdatedAt: time.Now().UTC(),
		Events:    events,
	}
	r.mu.Unlock()

	if r.eventsDir != "" {
		if err := SaveEvents(EventsFile(r.eventsDir, league, r.season), events); err != nil {
			r.logger.WithError(err).WithField("league", league).Warn("Failed to save league events")
		}
	}

	r.logger.WithFields(logrus.Fields{
		"league":   league,
		"season":   r.season,
		"events":   len(events),
		"duration": time.Since(start).String(),
	}).Info("League events refreshed")
	return nil
}

// Events returns the cached events for league
func (r *Refresher) Events(league string) (LeagueEvents, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cached, ok := r.cache[league]
	return cached, ok
}

// Start schedules Refresh on a standard five-field cron spec
func (r *Refresher) Start(schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return fmt.Errorf("refresher already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := r.Refresh(r.ctx); err != nil {
			r.logger.WithError(err).Warn("Scheduled refresh incomplete")
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c

	r.logger.WithField("schedule", schedule).Info("Scheduled event refresh")
	return nil
}

// Stop cancels any running refresh and waits for scheduled jobs to finish
func (r *Refresher) Stop() {
	r.cancel()
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
