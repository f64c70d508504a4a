package outrights

import (
	"fmt"
	"sort"
	"strings"
)

// CalcLeagueTable builds the league table from completed results.
// Handicaps are point deductions and always reduce points, whatever their sign.
// Results involving teams outside teamNames only update the listed side.
func CalcLeagueTable(teamNames []string, results []Event, handicaps map[string]int) ([]TeamRow, error) {
	index := make(map[string]int, len(teamNames))
	table := make([]TeamRow, len(teamNames))
	for i, name := range teamNames {
		index[name] = i
		table[i] = TeamRow{Name: name, Points: -abs(handicaps[name])}
	}

	for _, result := range results {
		if !result.HasScore() {
			continue
		}
		homeTeam, awayTeam, err := ParseEventName(result.Name)
		if err != nil {
			return nil, err
		}
		homeGoals, awayGoals := result.Score[0], result.Score[1]
		if i, ok := index[homeTeam]; ok {
			table[i].update(homeGoals, awayGoals)
		}
		if i, ok := index[awayTeam]; ok {
			table[i].update(awayGoals, homeGoals)
		}
	}

	// Sort by points (descending), then by goal difference (descending)
	sort.SliceStable(table, func(i, j int) bool {
		if table[i].Points == table[j].Points {
			return table[i].GoalDifference > table[j].GoalDifference
		}
		return table[i].Points > table[j].Points
	})

	return table, nil
}

func (t *TeamRow) update(goalsFor, goalsAgainst int) {
	switch {
	case goalsFor > goalsAgainst:
		t.Points += 3
	case goalsFor == goalsAgainst:
		t.Points++
	}
	t.GoalDifference += goalsFor - goalsAgainst
	t.Played++
}

// CalcRemainingFixtures returns rounds x a full round robin minus the fixtures already played
func CalcRemainingFixtures(teamNames []string, results []Event, rounds int) []string {
	playedCounts := make(map[string]int)
	for _, result := range results {
		if result.HasScore() {
			playedCounts[result.Name]++
		}
	}

	var remaining []string
	for i, homeTeam := range teamNames {
		for j, awayTeam := range teamNames {
			if i == j {
				continue
			}
			fixtureName := EventName(homeTeam, awayTeam)
			for k := playedCounts[fixtureName]; k < rounds; k++ {
				remaining = append(remaining, fixtureName)
			}
		}
	}
	return remaining
}

// ValidateFixtureCount checks that played and remaining fixtures add up to
// exactly rounds x N x (N-1); anything else means the inputs are corrupt
func ValidateFixtureCount(teamNames []string, results []Event, remaining []string, rounds int) error {
	played := 0
	for _, result := range results {
		if result.HasScore() {
			played++
		}
	}
	n := len(teamNames)
	target := rounds * n * (n - 1)
	if played+len(remaining) != target {
		return fmt.Errorf("%w: %d played + %d remaining != %d", ErrFixtureCount, played, len(remaining), target)
	}
	return nil
}

// RoundsFor returns how many times each fixture is played in a league (SCO=2, others=1)
func RoundsFor(league string) int {
	if strings.Contains(league, "SCO") {
		return 2
	}
	return 1
}

// EventName joins two team names into "Home vs Away"
func EventName(homeTeam, awayTeam string) string {
	return homeTeam + " vs " + awayTeam
}

// ParseEventName splits "Home vs Away" format into team names
func ParseEventName(eventName string) (string, string, error) {
	parts := strings.Split(eventName, " vs ")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidEventName, eventName)
	}
	return parts[0], parts[1], nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
