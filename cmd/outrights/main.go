// Command outrights fetches league data, prices outright markets for a
// league and prints the resulting tables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jhw/go-outrights/internal/config"
	"github.com/jhw/go-outrights/internal/logger"
	"github.com/jhw/go-outrights/internal/source"
	"github.com/jhw/go-outrights/pkg/outrights"
)

func main() {
	var (
		configFile    = flag.String("config", "", "Path to config file (default: ./config/config.yaml or ./config.yaml)")
		fetchEvents   = flag.Bool("fetch-events", false, "Fetch the configured leagues from football-data.co.uk into the events directory")
		concatMarkets = flag.Bool("concat-markets", false, "Merge core-data/*-markets.json into the markets file")
		league        = flag.String("league", "ENG1", "League code (ENG1-ENG4, SCO1-SCO4)")
		season        = flag.String("season", "", "Season code, e.g. 2425 (default from config)")
		eventsFile    = flag.String("events", "", "Events JSON file (default <events_dir>/<league>-<season>.json)")
		marketsFile   = flag.String("markets", "fixtures/markets.json", "Markets JSON file; missing file means no markets")
		coreData      = flag.String("core-data", "core-data", "Directory holding <league>-teams.json and <league>-markets.json")
		paths         = flag.Int("paths", 0, "Monte Carlo simulation paths (default from config)")
		maxiter       = flag.Int("maxiter", 0, "Maximum solver iterations (default from config)")
		strategy      = flag.String("strategy", "", "Optimiser: genetic, population, hybrid, neldermead")
		selector      = flag.String("selector", "", "Market selector: match_odds, asian_handicaps, over_under_goals, handicap_totals")
		homeAdvantage = flag.Float64("home-advantage", 0, "Fixed home advantage; 0 fits it alongside the ratings")
		handicaps     = flag.String("handicaps", "", "Point deductions as JSON (e.g., '{\"TeamName\":10}')")
		seed          = flag.Uint64("seed", 0, "Random seed (default from config)")
		jsonOutput    = flag.Bool("json", false, "Print the full result as JSON")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	log := logger.InitLogger(cfg.Log.Level, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *season == "" {
		*season = cfg.Source.Season
	}

	if *concatMarkets {
		if err := runConcatMarkets(*coreData, *marketsFile); err != nil {
			log.WithError(err).Fatal("Markets concatenation failed")
		}
		return
	}

	if *fetchEvents {
		if err := runFetchEvents(ctx, cfg, *season, log); err != nil {
			log.WithError(err).Fatal("Fetching events failed")
		}
		return
	}

	params := cfg.Model.SimParams()
	if *paths > 0 {
		params.Paths = *paths
	}
	if *maxiter > 0 {
		params.MaxIterations = *maxiter
	}
	if *strategy != "" {
		params.Strategy = *strategy
	}
	if *seed > 0 {
		params.Seed = *seed
	}
	selectorName := cfg.Model.Selector
	if *selector != "" {
		selectorName = *selector
	}

	if *eventsFile == "" {
		*eventsFile = source.EventsFile(cfg.Source.EventsDir, *league, *season)
	}
	events, err := source.LoadEvents(*eventsFile)
	if err != nil {
		log.WithError(err).Error("Could not load events")
		fmt.Printf("💡 Try running with -fetch-events to download fresh data\n")
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d events from %s\n", len(events), *eventsFile)

	markets, err := source.LoadMarkets(*marketsFile, *league)
	if err != nil {
		fmt.Printf("⚠️  Could not load markets file (%v), proceeding without markets\n", err)
		markets = nil
	} else {
		fmt.Printf("✓ Loaded %d markets for %s from %s\n", len(markets), *league, *marketsFile)
	}

	teamNames, err := source.LoadTeams(*coreData, *league)
	if err != nil {
		log.WithError(err).Fatal("Could not load teams")
	}

	handicapsMap, err := parseHandicaps(*handicaps)
	if err != nil {
		log.WithError(err).Fatal("Failed to parse handicaps")
	}

	req := outrights.SimulationRequest{
		League:    *league,
		TeamNames: teamNames,
		Events:    events,
		Handicaps: handicapsMap,
		Markets:   markets,
		Selector:  selectorName,
		Params:    params,
	}
	if *homeAdvantage > 0 {
		req.HomeAdvantage = homeAdvantage
	}

	fmt.Printf("\nRunning %s solver (%d iterations) and %d simulation paths...\n",
		params.Strategy, params.MaxIterations, params.Paths)

	result, err := outrights.Simulate(ctx, req, logger.WithLeague(*league))
	if err != nil {
		log.WithError(err).Fatal("Simulation failed")
	}

	if *jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.WithError(err).Fatal("Error marshaling results")
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("\n✓ Completed in %v\n", result.ProcessingTime.Round(time.Millisecond))
	fmt.Printf("✓ Solver error: %.4f (iterations: %d)\n", result.SolverError, result.Solver.Iterations)
	fmt.Printf("✓ Home advantage: %.3f\n", result.HomeAdvantage)

	displayTeams(os.Stdout, *league, result.Teams)
	if len(result.Marks) > 0 {
		displayMarkTable(os.Stdout, *league, result.Teams, result.Marks)
	}
}

// runFetchEvents downloads the configured season for every configured league
func runFetchEvents(ctx context.Context, cfg *config.Config, season string, log *logrus.Logger) error {
	client := source.NewClient(source.ClientConfig{
		BaseURL:         cfg.Source.BaseURL,
		Timeout:         cfg.Source.Timeout,
		BreakerFailures: cfg.Source.BreakerFailures,
		BreakerTimeout:  cfg.Source.BreakerTimeout,
	}, log)
	refresher := source.NewRefresher(client, season, cfg.Source.Leagues, cfg.Source.EventsDir, log)

	fmt.Printf("📥 Fetching %v season %s from football-data.co.uk...\n", cfg.Source.Leagues, season)
	start := time.Now()
	err := refresher.Refresh(ctx)
	for _, league := range cfg.Source.Leagues {
		if cached, ok := refresher.Events(league); ok {
			fmt.Printf("  ✓ %s: %d events -> %s\n", league, len(cached.Events),
				source.EventsFile(cfg.Source.EventsDir, league, season))
		}
	}
	fmt.Printf("🎯 Done in %v\n", time.Since(start).Round(time.Millisecond))
	return err
}

// runConcatMarkets merges per-league market files and prints a summary
func runConcatMarkets(dir, outputFile string) error {
	counts, err := source.ConcatMarketFiles(dir, outputFile)
	if err != nil {
		return err
	}
	total := 0
	for _, league := range sortedKeys(counts) {
		fmt.Printf("  %s: %d markets\n", league, counts[league])
		total += counts[league]
	}
	fmt.Printf("✓ Saved %d markets to %s\n", total, outputFile)
	return nil
}

// parseHandicaps parses a JSON string to a handicaps map
func parseHandicaps(handicapsStr string) (map[string]int, error) {
	handicapsMap := make(map[string]int)
	if handicapsStr == "" {
		return handicapsMap, nil
	}
	if err := json.Unmarshal([]byte(handicapsStr), &handicapsMap); err != nil {
		return nil, fmt.Errorf("invalid handicaps JSON: %w", err)
	}
	return handicapsMap, nil
}
