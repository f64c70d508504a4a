package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhw/go-outrights/pkg/outrights"
)

// TeamConfig is a team entry in a <league>-teams.json file
type TeamConfig struct {
	Name     string   `json:"name"`
	AltNames []string `json:"altNames,omitempty"`
}

// LeagueMarket is a market tagged with the league it belongs to, as stored
// in a concatenated markets file.
type LeagueMarket struct {
	League string `json:"league"`
	outrights.Market
}

// EventsFile returns the path of the cached events file for a league season
func EventsFile(dir, league, season string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", league, season))
}

// LoadEvents reads a JSON array of events
func LoadEvents(path string) ([]outrights.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading events %s: %w", path, err)
	}
	var events []outrights.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decoding events %s: %w", path, err)
	}
	return events, nil
}

// SaveEvents writes events as an indented JSON array, creating parent directories
func SaveEvents(path string, events []outrights.Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadTeams reads team names from <dir>/<league>-teams.json. A missing
// file yields no teams and no error.
func LoadTeams(dir, league string) ([]string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s-teams.json", league))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading teams %s: %w", path, err)
	}
	var teams []TeamConfig
	if err := json.Unmarshal(data, &teams); err != nil {
		return nil, fmt.Errorf("decoding teams %s: %w", path, err)
	}
	names := make([]string, 0, len(teams))
	for _, team := range teams {
		names = append(names, team.Name)
	}
	return names, nil
}

// LoadMarkets reads markets for league from a concatenated markets file.
// Entries without a league tag apply to every league.
func LoadMarkets(path, league string) ([]outrights.Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading markets %s: %w", path, err)
	}
	var tagged []LeagueMarket
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("decoding markets %s: %w", path, err)
	}
	var markets []outrights.Market
	for _, m := range tagged {
		if m.League == "" || m.League == league {
			markets = append(markets, m.Market)
		}
	}
	return markets, nil
}

// ConcatMarketFiles merges every <league>-markets.json in dir into a single
// file, tagging each market with its league. Fields other than the league
// tag pass through untouched. Returns the market count per league.
func ConcatMarketFiles(dir, outputFile string) (map[string]int, error) {
	marketFiles, err := filepath.Glob(filepath.Join(dir, "*-markets.json"))
	if err != nil {
		return nil, fmt.Errorf("finding market files: %w", err)
	}
	sort.Strings(marketFiles)

	counts := make(map[string]int)
	allMarkets := []map[string]interface{}{}
	for _, marketFile := range marketFiles {
		league := strings.TrimSuffix(filepath.Base(marketFile), "-markets.json")

		data, err := os.ReadFile(marketFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", marketFile, err)
		}
		var markets []map[string]interface{}
		if err := json.Unmarshal(data, &markets); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", marketFile, err)
		}
		for _, market := range markets {
			market["league"] = league
			allMarkets = append(allMarkets, market)
		}
		counts[league] += len(markets)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	outputData, err := json.MarshalIndent(allMarkets, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outputFile, outputData, 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outputFile, err)
	}
	return counts, nil
}
