// Package source fetches league results and closing quotes from
// football-data.co.uk and manages the local event and market files.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/jhw/go-outrights/internal/metrics"
	"github.com/jhw/go-outrights/pkg/outrights"
)

// DefaultBaseURL serves season files as <base>/<season>/<division>.csv
const DefaultBaseURL = "https://www.football-data.co.uk/mmz4281"

// divisions maps league codes to football-data.co.uk division IDs
var divisions = map[string]string{
	"ENG1": "E0",
	"ENG2": "E1",
	"ENG3": "E2",
	"ENG4": "E3",
	"ENG5": "EC",
	"SCO1": "SC0",
	"SCO2": "SC1",
	"SCO3": "SC2",
	"SCO4": "SC3",
}

// ErrUnknownLeague is returned for league codes with no division mapping
var ErrUnknownLeague = errors.New("unknown league")

// DivisionFor returns the football-data.co.uk division ID for a league code
func DivisionFor(league string) (string, error) {
	division, ok := divisions[league]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLeague, league)
	}
	return division, nil
}

// Leagues returns every league code with a division mapping, sorted
func Leagues() []string {
	leagues := make([]string, 0, len(divisions))
	for league := range divisions {
		leagues = append(leagues, league)
	}
	sort.Strings(leagues)
	return leagues
}

// Season formats the season starting in startYear, e.g. 2024 -> "2425"
func Season(startYear int) string {
	return fmt.Sprintf("%02d%02d", startYear%100, (startYear+1)%100)
}

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client downloads season files. Requests pass through a circuit breaker
// so a failing upstream is not hammered by refreshes.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	backoff        time.Duration
	circuitBreaker *gobreaker.CircuitBreaker
	logger         logrus.FieldLogger
}

// NewClient creates a football-data.co.uk client
func NewClient(cfg ClientConfig, logger logrus.FieldLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	failures := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "football-data",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Event source circuit breaker state changed")
		},
	})

	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:     cfg.MaxRetries,
		backoff:        2 * time.Second,
		circuitBreaker: cb,
		logger:         logger,
	}
}

// FetchSeason downloads and parses one league season
func (c *Client) FetchSeason(ctx context.Context, league, season string) ([]outrights.Event, error) {
	division, err := DivisionFor(league)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/%s/%s.csv", c.baseURL, season, division)

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, url)
	})
	if err != nil {
		metrics.SourceFetches.WithLabelValues(league, "error").Inc()
		return nil, fmt.Errorf("fetch %s %s: %w", league, season, err)
	}
	metrics.SourceFetches.WithLabelValues(league, "ok").Inc()

	events := result.([]outrights.Event)
	c.logger.WithFields(logrus.Fields{
		"league": league,
		"season": season,
		"events": len(events),
	}).Debug("Fetched season events")
	return events, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]outrights.Event, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2s, 4s, 8s
			delay := c.backoff << uint(attempt-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		events, retry, err := c.fetch(ctx, url)
		if err == nil {
			return events, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// fetch performs a single request; retry reports whether the failure is transient
func (c *Client) fetch(ctx context.Context, url string) (events []outrights.Event, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "go-outrights/1.0")
	req.Header.Set("Accept", "text/csv,text/plain,*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		events, err := ParseCSV(resp.Body)
		return events, false, err
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("HTTP %d: %s", resp.StatusCode, url)
	default:
		return nil, false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, url)
	}
}
