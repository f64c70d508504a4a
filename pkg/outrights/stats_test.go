package outrights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingErrorsZeroForFairPrices(t *testing.T) {
	truth := Ratings{"Arsenal": 1.8, "Chelsea": 0.9}
	events := []Event{
		fairEvent(t, "Arsenal vs Chelsea", truth, 1.2),
		fairEvent(t, "Chelsea vs Arsenal", truth, 1.2),
		{Name: "Arsenal vs Chelsea", OverUnderGoals: &HandicapQuote{Prices: []float64{1.9, 1.9}, Line: 2.5}},
	}

	errs, err := TrainingErrors([]string{"Arsenal", "Chelsea"}, events, truth, 1.2, 11, 0.1)
	require.NoError(t, err)
	require.Len(t, errs["Arsenal"], 2)
	require.Len(t, errs["Chelsea"], 2)
	for _, e := range errs["Arsenal"] {
		assert.InDelta(t, 0, e, 1e-9)
	}

	mean, std := meanStd(errs["Chelsea"])
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 0, std, 1e-9)
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = meanStd([]float64{0.4})
	assert.Equal(t, 0.4, mean)
	assert.Equal(t, 0.0, std)

	mean, std = meanStd([]float64{1, 3})
	assert.InDelta(t, 2, mean, 1e-12)
	assert.InDelta(t, 1.4142135623730951, std, 1e-12)
}

func TestPointsPerGameRatings(t *testing.T) {
	ratings := Ratings{"Arsenal": 2.0, "Burnley": 0.7, "Chelsea": 1.3}
	ppg, err := PointsPerGameRatings(ratings.Names(), ratings, 1.2, 11, 0.1)
	require.NoError(t, err)

	assert.Greater(t, ppg["Arsenal"], ppg["Chelsea"])
	assert.Greater(t, ppg["Chelsea"], ppg["Burnley"])
	for name, v := range ppg {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 3.0, name)
	}
}

func TestGoalDifferenceRatings(t *testing.T) {
	ratings := Ratings{"Arsenal": 2.0, "Burnley": 0.7, "Chelsea": 1.3}
	gd, err := GoalDifferenceRatings(ratings.Names(), ratings, 1.2, 11, 0.1)
	require.NoError(t, err)

	assert.Greater(t, gd["Arsenal"], 0.0)
	assert.Less(t, gd["Burnley"], 0.0)
	assert.Greater(t, gd["Arsenal"], gd["Chelsea"])
	assert.InDelta(t, 0, gd["Arsenal"]+gd["Burnley"]+gd["Chelsea"], 1e-9)
}

func TestExpectedSeasonPoints(t *testing.T) {
	ratings := Ratings{"A": 1.2, "B": 1.2}
	table := []TeamRow{{Name: "A", Points: 10}, {Name: "B", Points: 7}}

	points, err := ExpectedSeasonPoints(table, []string{"A vs B"}, ratings, 1.0, 11, 0.1)
	require.NoError(t, err)

	m := NewScoreMatrix(1.2, 1.2, 0.1, 11)
	assert.InDelta(t, 10+m.ExpectedHomePoints(), points["A"], 1e-12)
	assert.InDelta(t, 7+m.ExpectedAwayPoints(), points["B"], 1e-12)
}

func TestTrainingSetKeepsMostRecent(t *testing.T) {
	quote := &MatchOddsQuote{Prices: []float64{2, 3.4, 3.8}}
	events := []Event{
		{Name: "A vs B", Date: "2024-08-20", MatchOdds: quote},
		{Name: "B vs A", Date: "2024-08-10", MatchOdds: quote},
		{Name: "A vs C", Date: "2024-08-30"},
		{Name: "C vs A", Date: "2024-09-05", MatchOdds: quote},
	}

	training := TrainingSet(events, MatchOddsSelector{}, 2)
	require.Len(t, training, 2)
	assert.Equal(t, "A vs B", training[0].Name)
	assert.Equal(t, "C vs A", training[1].Name)

	assert.Len(t, TrainingSet(events, MatchOddsSelector{}, 0), 3)
	assert.Empty(t, TrainingSet(events, AsianHandicapSelector{}, 10))
}
