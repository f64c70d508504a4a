package outrights

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TrainingErrors returns, per team, model minus market expected points for
// every training event the team played. Events without match odds are skipped.
func TrainingErrors(teamNames []string, events []Event, ratings Ratings, homeAdvantage float64, n int, rho float64) (map[string][]float64, error) {
	errs := make(map[string][]float64, len(teamNames))
	for _, name := range teamNames {
		errs[name] = []float64{}
	}

	for _, event := range events {
		if !(MatchOddsSelector{}).Accepts(event) {
			continue
		}
		homeTeam, awayTeam, err := event.Teams()
		if err != nil {
			return nil, err
		}
		matrix, err := InitScoreMatrix(event.Name, ratings, homeAdvantage, n, rho)
		if err != nil {
			return nil, err
		}
		probs, err := Demargin(event.MatchOdds.Prices)
		if err != nil {
			return nil, err
		}
		if _, ok := errs[homeTeam]; ok {
			errs[homeTeam] = append(errs[homeTeam], matrix.ExpectedHomePoints()-(3*probs[0]+probs[1]))
		}
		if _, ok := errs[awayTeam]; ok {
			errs[awayTeam] = append(errs[awayTeam], matrix.ExpectedAwayPoints()-(3*probs[2]+probs[1]))
		}
	}
	return errs, nil
}

// meanStd returns the mean and sample standard deviation, both zero for too few values
func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// PointsPerGameRatings averages each team's expected points over a full
// home and away round robin against the rest of the league
func PointsPerGameRatings(teamNames []string, ratings Ratings, homeAdvantage float64, n int, rho float64) (map[string]float64, error) {
	ppg := make(map[string]float64, len(teamNames))
	for _, name := range teamNames {
		ppg[name] = 0
	}
	if len(teamNames) < 2 {
		return ppg, nil
	}

	for _, homeTeam := range teamNames {
		for _, awayTeam := range teamNames {
			if homeTeam == awayTeam {
				continue
			}
			matrix, err := InitScoreMatrix(EventName(homeTeam, awayTeam), ratings, homeAdvantage, n, rho)
			if err != nil {
				return nil, err
			}
			ppg[homeTeam] += matrix.ExpectedHomePoints()
			ppg[awayTeam] += matrix.ExpectedAwayPoints()
		}
	}

	games := float64(2 * (len(teamNames) - 1))
	for name := range ppg {
		ppg[name] /= games
	}
	return ppg, nil
}

// GoalDifferenceRatings averages each team's expected goal difference over
// the same home and away round robin as PointsPerGameRatings
func GoalDifferenceRatings(teamNames []string, ratings Ratings, homeAdvantage float64, n int, rho float64) (map[string]float64, error) {
	gd := make(map[string]float64, len(teamNames))
	for _, name := range teamNames {
		gd[name] = 0
	}
	if len(teamNames) < 2 {
		return gd, nil
	}

	for _, homeTeam := range teamNames {
		for _, awayTeam := range teamNames {
			if homeTeam == awayTeam {
				continue
			}
			matrix, err := InitScoreMatrix(EventName(homeTeam, awayTeam), ratings, homeAdvantage, n, rho)
			if err != nil {
				return nil, err
			}
			homeGoals, awayGoals := matrix.ExpectedGoals()
			gd[homeTeam] += homeGoals - awayGoals
			gd[awayTeam] += awayGoals - homeGoals
		}
	}

	games := float64(2 * (len(teamNames) - 1))
	for name := range gd {
		gd[name] /= games
	}
	return gd, nil
}

// ExpectedSeasonPoints adds the model's expected points for every remaining
// fixture to each team's current table points
func ExpectedSeasonPoints(table []TeamRow, remaining []string, ratings Ratings, homeAdvantage float64, n int, rho float64) (map[string]float64, error) {
	points := make(map[string]float64, len(table))
	for _, row := range table {
		points[row.Name] = float64(row.Points)
	}

	for _, fixture := range remaining {
		homeTeam, awayTeam, err := ParseEventName(fixture)
		if err != nil {
			return nil, err
		}
		matrix, err := InitScoreMatrix(fixture, ratings, homeAdvantage, n, rho)
		if err != nil {
			return nil, err
		}
		points[homeTeam] += matrix.ExpectedHomePoints()
		points[awayTeam] += matrix.ExpectedAwayPoints()
	}
	return points, nil
}

// TrainingSet returns the most recent limit events (by date) that the
// selector can read, oldest first. A non-positive limit keeps them all.
func TrainingSet(events []Event, selector Selector, limit int) []Event {
	var accepted []Event
	for _, e := range events {
		if selector.Accepts(e) {
			accepted = append(accepted, e)
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Date < accepted[j].Date
	})
	if limit > 0 && len(accepted) > limit {
		accepted = accepted[len(accepted)-limit:]
	}
	return accepted
}
