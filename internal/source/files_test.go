package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhw/go-outrights/pkg/outrights"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSaveAndLoadEvents(t *testing.T) {
	dir := t.TempDir()
	path := EventsFile(filepath.Join(dir, "events"), "ENG1", "2425")
	assert.Equal(t, "ENG1-2425.json", filepath.Base(path))

	events := []outrights.Event{{
		Name:      "A vs B",
		Date:      "2024-08-16",
		Score:     []int{1, 1},
		MatchOdds: &outrights.MatchOddsQuote{Prices: []float64{2.5, 3.2, 2.9}},
	}}
	require.NoError(t, SaveEvents(path, events))

	loaded, err := LoadEvents(path)
	require.NoError(t, err)
	assert.Equal(t, events, loaded)

	_, err = LoadEvents(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadTeams(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ENG1-teams.json"), `[{"name":"Arsenal","altNames":["Gunners"]},{"name":"Chelsea"}]`)

	teams, err := LoadTeams(dir, "ENG1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arsenal", "Chelsea"}, teams)

	teams, err = LoadTeams(dir, "ENG2")
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestConcatMarketFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ENG1-markets.json"), `[{"name":"Winner","payoff":"1|19x0"},{"name":"Bottom","payoff":"17x0|3x1","extra":true}]`)
	writeFile(t, filepath.Join(dir, "SCO1-markets.json"), `[{"name":"Winner","payoff":"1|11x0"}]`)
	writeFile(t, filepath.Join(dir, "notes.json"), `[]`)

	output := filepath.Join(dir, "fixtures", "markets.json")
	counts, err := ConcatMarketFiles(dir, output)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ENG1": 2, "SCO1": 1}, counts)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var merged []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &merged))
	require.Len(t, merged, 3)
	assert.Equal(t, "ENG1", merged[0]["league"])
	assert.Equal(t, true, merged[1]["extra"])
	assert.Equal(t, "SCO1", merged[2]["league"])

	markets, err := LoadMarkets(output, "ENG1")
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "Bottom", markets[1].Name)
	assert.Equal(t, "17x0|3x1", markets[1].Payoff)
}

func TestConcatMarketFilesInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ENG1-markets.json"), `{not json`)
	_, err := ConcatMarketFiles(dir, filepath.Join(dir, "out.json"))
	assert.Error(t, err)
}

func TestLoadMarketsUntagged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markets.json")
	writeFile(t, path, `[{"name":"Winner","payoff":"1|3x0"},{"league":"ENG2","name":"Top 2","payoff":"2x1|2x0"}]`)

	markets, err := LoadMarkets(path, "ENG1")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "Winner", markets[0].Name)
}
