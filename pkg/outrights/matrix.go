package outrights

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// ScoreMatrix is the outer product of two Poisson distributions with the
// Dixon-Coles low-score correction, indexed [homeGoals][awayGoals]
type ScoreMatrix struct {
	LambdaHome float64
	LambdaAway float64
	Rho        float64
	Matrix     [][]float64
}

// InitScoreMatrix builds the score matrix for a "Home vs Away" event from team ratings
func InitScoreMatrix(eventName string, ratings Ratings, homeAdvantage float64, n int, rho float64) (*ScoreMatrix, error) {
	homeTeam, awayTeam, err := ParseEventName(eventName)
	if err != nil {
		return nil, err
	}
	homeRating, err := ratings.Lookup(homeTeam)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", eventName, err)
	}
	awayRating, err := ratings.Lookup(awayTeam)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", eventName, err)
	}
	return NewScoreMatrix(homeRating*homeAdvantage, awayRating, rho, n), nil
}

// NewScoreMatrix creates an n x n score matrix from Poisson lambdas with Dixon-Coles adjustment.
// Cells are clamped at zero so a rho of 1 or more cannot produce negative weights.
func NewScoreMatrix(lambdaHome, lambdaAway, rho float64, n int) *ScoreMatrix {
	homeProbs := make([]float64, n)
	awayProbs := make([]float64, n)
	for k := 0; k < n; k++ {
		homeProbs[k] = PoissonProb(lambdaHome, k)
		awayProbs[k] = PoissonProb(lambdaAway, k)
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		for j := range matrix[i] {
			matrix[i][j] = math.Max(0, homeProbs[i]*awayProbs[j]*DixonColesAdjustment(i, j, rho))
		}
	}

	return &ScoreMatrix{
		LambdaHome: lambdaHome,
		LambdaAway: lambdaAway,
		Rho:        rho,
		Matrix:     matrix,
	}
}

// N returns the number of goal values per side (goals 0..N-1)
func (m *ScoreMatrix) N() int {
	return len(m.Matrix)
}

// probability sums the cells selected by the mask
func (m *ScoreMatrix) probability(mask func(i, j int) bool) float64 {
	var total float64
	for i, row := range m.Matrix {
		for j, p := range row {
			if mask(i, j) {
				total += p
			}
		}
	}
	return total
}

// MatchOdds returns normalised 1X2 probabilities [home_win, draw, away_win]
func (m *ScoreMatrix) MatchOdds() [3]float64 {
	probs := normalise([]float64{
		m.probability(func(i, j int) bool { return i > j }),
		m.probability(func(i, j int) bool { return i == j }),
		m.probability(func(i, j int) bool { return i < j }),
	})
	return [3]float64{probs[0], probs[1], probs[2]}
}

// ExpectedHomePoints returns 3 x home win + draw
func (m *ScoreMatrix) ExpectedHomePoints() float64 {
	odds := m.MatchOdds()
	return 3*odds[0] + odds[1]
}

// ExpectedAwayPoints returns 3 x away win + draw
func (m *ScoreMatrix) ExpectedAwayPoints() float64 {
	odds := m.MatchOdds()
	return 3*odds[2] + odds[1]
}

type side int

const (
	homeSide side = iota
	awaySide
)

// covers sums the mass where the side beats the line; non-strict includes the push
func (m *ScoreMatrix) covers(s side, line float64, strict bool) float64 {
	return m.probability(func(i, j int) bool {
		d := float64(i) + line - float64(j)
		if s == awaySide {
			d = -d
		}
		if strict {
			return d > 0
		}
		return d >= 0
	})
}

func (m *ScoreMatrix) handicap(s side, line float64) (float64, error) {
	switch {
	case isInteger(line):
		return m.covers(s, line, false), nil
	case isInteger(line + 0.5):
		return m.covers(s, line, true), nil
	}
	halfLine, integerLine, err := splitLine(line)
	if err != nil {
		return 0, err
	}
	return (m.covers(s, halfLine, true) + m.covers(s, integerLine, false)) / 2, nil
}

// AsianHandicaps returns normalised [home, away] probabilities for the home team
// receiving line goals. Quarter and three-quarter lines are split stakes over the
// adjacent half and integer lines.
func (m *ScoreMatrix) AsianHandicaps(line float64) ([2]float64, error) {
	if err := checkLine(line); err != nil {
		return [2]float64{}, fmt.Errorf("asian handicap: %w", err)
	}
	home, err := m.handicap(homeSide, line)
	if err != nil {
		return [2]float64{}, fmt.Errorf("asian handicap: %w", err)
	}
	away, err := m.handicap(awaySide, line)
	if err != nil {
		return [2]float64{}, fmt.Errorf("asian handicap: %w", err)
	}
	probs := normalise([]float64{home, away})
	return [2]float64{probs[0], probs[1]}, nil
}

func (m *ScoreMatrix) overUnder(line float64) (over, under float64) {
	over = m.probability(func(i, j int) bool { return float64(i+j) > line })
	under = m.probability(func(i, j int) bool { return float64(i+j) < line })
	return over, under
}

// OverUnderGoals returns normalised [over, under] probabilities for total goals at line
func (m *ScoreMatrix) OverUnderGoals(line float64) ([2]float64, error) {
	if err := checkLine(line); err != nil {
		return [2]float64{}, fmt.Errorf("over/under goals: %w", err)
	}
	var over, under float64
	if isInteger(line) || isInteger(line+0.5) {
		over, under = m.overUnder(line)
	} else {
		halfLine, integerLine, err := splitLine(line)
		if err != nil {
			return [2]float64{}, fmt.Errorf("over/under goals: %w", err)
		}
		halfOver, halfUnder := m.overUnder(halfLine)
		intOver, intUnder := m.overUnder(integerLine)
		over, under = (halfOver+intOver)/2, (halfUnder+intUnder)/2
	}
	probs := normalise([]float64{over, under})
	return [2]float64{probs[0], probs[1]}, nil
}

// CorrectScore returns the probability of a specific scoreline
func (m *ScoreMatrix) CorrectScore(homeGoals, awayGoals int) float64 {
	if homeGoals < 0 || awayGoals < 0 || homeGoals >= m.N() || awayGoals >= m.N() {
		return 0.0
	}
	return m.Matrix[homeGoals][awayGoals]
}

// ExpectedGoals returns expected home and away goals
func (m *ScoreMatrix) ExpectedGoals() (homeExpected, awayExpected float64) {
	for i, row := range m.Matrix {
		for j, p := range row {
			homeExpected += float64(i) * p
			awayExpected += float64(j) * p
		}
	}
	return homeExpected, awayExpected
}

// TotalProbability returns the sum of all probabilities in the matrix
// Should be close to 1.0 (may be less since goals beyond the grid are truncated)
func (m *ScoreMatrix) TotalProbability() float64 {
	return m.probability(func(int, int) bool { return true })
}

// SimulateScores draws nPaths scorelines from the flattened grid.
// The same source state always yields the same scores.
func (m *ScoreMatrix) SimulateScores(nPaths int, src rand.Source) []Score {
	n := m.N()
	weights := make([]float64, 0, n*n)
	for _, row := range m.Matrix {
		weights = append(weights, row...)
	}
	categorical := distuv.NewCategorical(weights, src)

	scores := make([]Score, nPaths)
	for path := range scores {
		idx := int(categorical.Rand())
		scores[path] = Score{Home: idx / n, Away: idx % n}
	}
	return scores
}

// DixonColesAdjustment applies the Dixon-Coles adjustment for low-scoring games
func DixonColesAdjustment(homeGoals, awayGoals int, rho float64) float64 {
	switch {
	case homeGoals == 0 && awayGoals == 0:
		return 1 - rho
	case homeGoals == 0 && awayGoals == 1, homeGoals == 1 && awayGoals == 0:
		return 1 + rho/2
	case homeGoals == 1 && awayGoals == 1:
		return 1 - rho
	default:
		return 1.0
	}
}

func isInteger(x float64) bool {
	return x == math.Trunc(x)
}

func checkLine(line float64) error {
	if math.IsNaN(line) || math.IsInf(line, 0) {
		return fmt.Errorf("%w: %v", ErrUnsupportedLine, line)
	}
	return nil
}

// splitLine returns the half line and integer line either side of a quarter line
func splitLine(line float64) (halfLine, integerLine float64, err error) {
	lo, hi := line-0.25, line+0.25
	switch {
	case isInteger(lo) && isInteger(hi+0.5):
		return hi, lo, nil
	case isInteger(hi) && isInteger(lo+0.5):
		return lo, hi, nil
	}
	return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedLine, line)
}
