package outrights

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func TestDixonColesAdjustment(t *testing.T) {
	rho := 0.1
	assert.InDelta(t, 0.9, DixonColesAdjustment(0, 0, rho), 1e-12)
	assert.InDelta(t, 1.05, DixonColesAdjustment(0, 1, rho), 1e-12)
	assert.InDelta(t, 1.05, DixonColesAdjustment(1, 0, rho), 1e-12)
	assert.InDelta(t, 0.9, DixonColesAdjustment(1, 1, rho), 1e-12)
	assert.Equal(t, 1.0, DixonColesAdjustment(2, 0, rho))
	assert.Equal(t, 1.0, DixonColesAdjustment(3, 4, rho))
}

func TestInitScoreMatrix(t *testing.T) {
	ratings := Ratings{"Arsenal": 1.6, "Chelsea": 1.1}

	m, err := InitScoreMatrix("Arsenal vs Chelsea", ratings, 1.2, 11, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.92, m.LambdaHome, 1e-12)
	assert.InDelta(t, 1.1, m.LambdaAway, 1e-12)
	assert.Equal(t, 11, m.N())
	assert.InDelta(t, 1.0, m.TotalProbability(), 0.02)

	_, err = InitScoreMatrix("Arsenal vs Spurs", ratings, 1.2, 11, 0.1)
	assert.ErrorIs(t, err, ErrUnknownTeam)

	_, err = InitScoreMatrix("Arsenal - Chelsea", ratings, 1.2, 11, 0.1)
	assert.ErrorIs(t, err, ErrInvalidEventName)
}

func TestMatchOddsSumToOne(t *testing.T) {
	for _, lambdas := range [][2]float64{{0.5, 0.5}, {1.5, 1.2}, {3.2, 0.4}, {0.1, 5.5}, {6, 6}} {
		m := NewScoreMatrix(lambdas[0], lambdas[1], 0.1, 11)
		odds := m.MatchOdds()
		assert.InDelta(t, 1.0, sum(odds[:]), 1e-6, "lambdas %v", lambdas)
	}
}

func TestMatchOddsFavourStrongerSide(t *testing.T) {
	m := NewScoreMatrix(2.2, 0.8, 0.1, 11)
	odds := m.MatchOdds()
	assert.Greater(t, odds[0], odds[2])
	assert.Greater(t, m.ExpectedHomePoints(), m.ExpectedAwayPoints())
	assert.InDelta(t, 3*odds[0]+odds[1], m.ExpectedHomePoints(), 1e-12)
	assert.InDelta(t, 3*odds[2]+odds[1], m.ExpectedAwayPoints(), 1e-12)
}

func TestZeroLambdaIsPointMass(t *testing.T) {
	m := NewScoreMatrix(0, 0, 0, 11)
	assert.InDelta(t, 1.0, m.CorrectScore(0, 0), 1e-12)
	odds := m.MatchOdds()
	assert.Equal(t, [3]float64{0, 1, 0}, odds)
}

func TestLargeRhoCellsClampedAtZero(t *testing.T) {
	m := NewScoreMatrix(1.4, 1.1, 1.5, 8)
	for _, row := range m.Matrix {
		for _, p := range row {
			assert.GreaterOrEqual(t, p, 0.0)
		}
	}
	assert.Equal(t, 0.0, m.CorrectScore(0, 0))

	scores := m.SimulateScores(100, rand.NewPCG(1, 2))
	assert.Len(t, scores, 100)
}

func TestExpectedGoalsMatchLambdas(t *testing.T) {
	m := NewScoreMatrix(1.4, 1.1, 0, 20)
	home, away := m.ExpectedGoals()
	assert.InDelta(t, 1.4, home, 1e-9)
	assert.InDelta(t, 1.1, away, 1e-9)
}

func TestAsianHandicapsSumToOne(t *testing.T) {
	m := NewScoreMatrix(1.7, 1.1, 0.1, 11)
	for _, line := range []float64{-2.5, -1.75, -1.25, -1, -0.75, -0.5, -0.25, 0, 0.25, 0.5, 0.75, 1, 1.5, 2.25} {
		probs, err := m.AsianHandicaps(line)
		require.NoError(t, err, "line %v", line)
		assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9, "line %v", line)
	}
}

func TestOverUnderGoalsSumToOne(t *testing.T) {
	m := NewScoreMatrix(1.4, 1.3, 0.1, 11)
	for _, line := range []float64{0.5, 1.5, 2, 2.25, 2.5, 2.75, 3, 3.5, 4.5} {
		probs, err := m.OverUnderGoals(line)
		require.NoError(t, err, "line %v", line)
		assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9, "line %v", line)
	}
}

func TestAsianHandicapHalfLineMatchesMatchOdds(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.2, 0.1, 11)
	odds := m.MatchOdds()

	// home -0.5 wins only on a home win
	probs, err := m.AsianHandicaps(-0.5)
	require.NoError(t, err)
	assert.InDelta(t, odds[0], probs[0], 1e-9)
	assert.InDelta(t, odds[1]+odds[2], probs[1], 1e-9)
}

func TestAsianHandicapPushIsShared(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.2, 0.1, 11)
	odds := m.MatchOdds()

	// draw no bet: the draw mass counts for both sides before normalising
	probs, err := m.AsianHandicaps(0)
	require.NoError(t, err)
	total := odds[0] + odds[2] + 2*odds[1]
	assert.InDelta(t, (odds[0]+odds[1])/total, probs[0], 1e-9)
	assert.InDelta(t, (odds[2]+odds[1])/total, probs[1], 1e-9)
}

func TestAsianHandicapQuarterLineAverages(t *testing.T) {
	m := NewScoreMatrix(1.8, 1.0, 0.1, 11)

	quarter := m.covers(homeSide, -0.5, true)/2 + m.covers(homeSide, 0, false)/2
	quarterAway := m.covers(awaySide, -0.5, true)/2 + m.covers(awaySide, 0, false)/2

	probs, err := m.AsianHandicaps(-0.25)
	require.NoError(t, err)
	assert.InDelta(t, quarter/(quarter+quarterAway), probs[0], 1e-9)

	// moving the line towards the away side never helps the home side
	lower, err := m.AsianHandicaps(-0.75)
	require.NoError(t, err)
	half, err := m.AsianHandicaps(-0.5)
	require.NoError(t, err)
	assert.Less(t, lower[0], half[0])
	assert.Greater(t, probs[0], half[0])
}

func TestUnsupportedLines(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.2, 0.1, 11)
	for _, line := range []float64{0.1, -0.3, 1.6, 2.9} {
		_, err := m.AsianHandicaps(line)
		assert.ErrorIs(t, err, ErrUnsupportedLine, "line %v", line)
		_, err = m.OverUnderGoals(line)
		assert.ErrorIs(t, err, ErrUnsupportedLine, "line %v", line)
	}
}

func TestOverUnderIntegerLineExcludesPush(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.2, 0.1, 11)
	probs, err := m.OverUnderGoals(2)
	require.NoError(t, err)

	over := m.probability(func(i, j int) bool { return i+j > 2 })
	under := m.probability(func(i, j int) bool { return i+j < 2 })
	assert.InDelta(t, over/(over+under), probs[0], 1e-9)
}

func TestSimulateScoresConvergesToGrid(t *testing.T) {
	m := NewScoreMatrix(1.5, 1.2, 0.1, 11)
	nPaths := 40000
	scores := m.SimulateScores(nPaths, rand.NewPCG(42, 7))
	require.Len(t, scores, nPaths)

	counts := make(map[Score]int)
	for _, s := range scores {
		counts[s]++
	}
	total := m.TotalProbability()
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			freq := float64(counts[Score{Home: i, Away: j}]) / float64(nPaths)
			assert.InDelta(t, m.Matrix[i][j]/total, freq, 0.01, "cell %d-%d", i, j)
		}
	}
}

func TestSimulateScoresReproducible(t *testing.T) {
	m := NewScoreMatrix(1.3, 1.1, 0.1, 11)
	a := m.SimulateScores(500, rand.NewPCG(7, 1))
	b := m.SimulateScores(500, rand.NewPCG(7, 1))
	c := m.SimulateScores(500, rand.NewPCG(8, 1))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
