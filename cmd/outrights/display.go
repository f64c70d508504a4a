package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jhw/go-outrights/pkg/outrights"
)

// displayTeams prints the league table with model outputs, in table order
func displayTeams(w io.Writer, league string, teams []outrights.Team) {
	fmt.Fprintf(w, "\n🏆 %s (%d teams):\n", league, len(teams))
	fmt.Fprintf(w, "%3s %-20s %5s %5s %5s %7s %7s %7s %9s %7s %7s\n",
		"Pos", "Team", "Pts", "GD", "Pld", "Rating", "PPG", "xGD", "SeasonPts", "ErrMu", "ErrSd")
	fmt.Fprintf(w, "%3s %-20s %5s %5s %5s %7s %7s %7s %9s %7s %7s\n",
		"---", "----", "---", "--", "---", "------", "---", "---", "---------", "-----", "-----")

	for i, team := range teams {
		fmt.Fprintf(w, "%3d %-20s %5d %5d %5d %7.3f %7.3f %+7.3f %9.1f %7.3f %7.3f\n",
			i+1,
			truncateString(team.Name, 20),
			team.Points,
			team.GoalDifference,
			team.Played,
			team.PoissonRating,
			team.PointsPerGameRating,
			team.GoalDifferenceRating,
			team.ExpectedSeasonPoints,
			team.MeanTrainingError,
			team.StdTrainingError,
		)
	}
}

// displayMarkTable prints one column per market, teams sorted by expected season points
func displayMarkTable(w io.Writer, league string, teams []outrights.Team, marks []outrights.Mark) {
	byMarket := make(map[string]map[string]float64)
	var markets []string
	for _, m := range marks {
		if _, ok := byMarket[m.Market]; !ok {
			byMarket[m.Market] = make(map[string]float64)
			markets = append(markets, m.Market)
		}
		byMarket[m.Market][m.Team] = m.Mark
	}

	sorted := append([]outrights.Team(nil), teams...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExpectedSeasonPoints > sorted[j].ExpectedSeasonPoints
	})

	fmt.Fprintf(w, "\n📊 MARK VALUES TABLE - %s\n", league)
	fmt.Fprintf(w, "%-13s %7s", "Team", "ExpPts")
	for _, market := range markets {
		fmt.Fprintf(w, " %6s", compactMarketName(market))
	}
	fmt.Fprintf(w, "\n%-13s %7s", "─────────────", "───────")
	for range markets {
		fmt.Fprintf(w, " %6s", "──────")
	}
	fmt.Fprintln(w)

	for _, team := range sorted {
		fmt.Fprintf(w, "%-13s %7.1f", truncateString(team.Name, 13), team.ExpectedSeasonPoints)
		for _, market := range markets {
			if mark, ok := byMarket[market][team.Name]; ok {
				fmt.Fprintf(w, " %6.3f", mark)
			} else {
				fmt.Fprintf(w, " %6s", "") // team outside this market
			}
		}
		fmt.Fprintln(w)
	}
}

var marketAbbreviations = strings.NewReplacer(
	// Outside Top patterns must come before Top patterns
	"Outside Top Two", "OT2",
	"Outside Top Three", "OT3",
	"Outside Top Four", "OT4",
	"Outside Top Five", "OT5",
	"Outside Top Six", "OT6",
	"Outside Top Seven", "OT7",
	"Top Two", "T2",
	"Top Three", "T3",
	"Top Four", "T4",
	"Top Five", "T5",
	"Top Six", "T6",
	"Top Seven", "T7",
	"Top Half", "T½",
	"Big Six", "B6",
	"Big Seven", "B7",
	"Bottom Half", "B½",
	"Winner", "Win",
	"Relegation", "Rlg",
	"Promotion", "Prom",
	"Without", "W/O",
	"Bottom", "Btm",
)

// compactMarketName abbreviates a market name to at most six characters
func compactMarketName(market string) string {
	return truncateRunes(marketAbbreviations.Replace(market), 6)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
