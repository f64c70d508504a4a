package outrights

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// RatingsSolver calibrates team ratings (and optionally home advantage) so the
// score matrix model reproduces market-implied probabilities
type RatingsSolver struct {
	modelSelector  ModelSelector
	marketSelector MarketSelector
	minimizer      Minimizer

	ratingRange        Range
	homeAdvantageRange Range
	gridSize           int
	rho                float64
	excellentError     float64
	maxError           float64
	logger             logrus.FieldLogger
}

// SolverOption configures a RatingsSolver
type SolverOption func(*RatingsSolver)

// WithSelector uses the same bet type for the model and market views
func WithSelector(s Selector) SolverOption {
	return func(rs *RatingsSolver) {
		rs.modelSelector = s
		rs.marketSelector = s
	}
}

// WithSelectors sets the model and market selectors independently
func WithSelectors(model ModelSelector, market MarketSelector) SolverOption {
	return func(rs *RatingsSolver) {
		rs.modelSelector = model
		rs.marketSelector = market
	}
}

// WithMinimizer swaps the optimisation backend (default: genetic)
func WithMinimizer(m Minimizer) SolverOption {
	return func(rs *RatingsSolver) { rs.minimizer = m }
}

// WithRatingRange bounds every team rating
func WithRatingRange(r Range) SolverOption {
	return func(rs *RatingsSolver) { rs.ratingRange = r }
}

// WithHomeAdvantageRange bounds the fitted home advantage multiplier
func WithHomeAdvantageRange(r Range) SolverOption {
	return func(rs *RatingsSolver) { rs.homeAdvantageRange = r }
}

// WithMatrix sets the score matrix grid size and Dixon-Coles rho
func WithMatrix(gridSize int, rho float64) SolverOption {
	return func(rs *RatingsSolver) {
		rs.gridSize = gridSize
		rs.rho = rho
	}
}

// WithThresholds sets the excellent and maximum tolerable solver errors
func WithThresholds(excellent, maxErr float64) SolverOption {
	return func(rs *RatingsSolver) {
		rs.excellentError = excellent
		rs.maxError = maxErr
	}
}

// WithLogger sets where solver progress is logged
func WithLogger(logger logrus.FieldLogger) SolverOption {
	return func(rs *RatingsSolver) { rs.logger = logger }
}

// NewRatingsSolver creates a solver fitting match odds with the genetic minimiser
func NewRatingsSolver(opts ...SolverOption) *RatingsSolver {
	defaults := DefaultSimParams()
	rs := &RatingsSolver{
		modelSelector:      MatchOddsSelector{},
		marketSelector:     MatchOddsSelector{},
		ratingRange:        defaults.RatingRange,
		homeAdvantageRange: defaults.HomeAdvantageRange,
		gridSize:           defaults.GridSize,
		rho:                defaults.Rho,
		excellentError:     defaults.ExcellentError,
		maxError:           defaults.MaxError,
	}
	for _, opt := range opts {
		opt(rs)
	}
	rs.logger = loggerOrDiscard(rs.logger)
	if rs.minimizer == nil {
		m := NewGeneticMinimizer(defaults.Seed)
		m.Logger = rs.logger
		rs.minimizer = m
	}
	return rs
}

// trainingEvent is an event with its market probabilities resolved once
type trainingEvent struct {
	event       Event
	marketProbs []float64
	home, away  string
}

func (rs *RatingsSolver) prepare(events []Event, ratings Ratings) ([]trainingEvent, error) {
	training := make([]trainingEvent, len(events))
	for i, e := range events {
		home, away, err := e.Teams()
		if err != nil {
			return nil, err
		}
		for _, team := range []string{home, away} {
			if _, err := ratings.Lookup(team); err != nil {
				return nil, fmt.Errorf("training event %s: %w", e.Name, err)
			}
		}
		probs, err := rs.marketSelector.MarketProbabilities(e)
		if err != nil {
			return nil, err
		}
		training[i] = trainingEvent{event: e, marketProbs: probs, home: home, away: away}
	}
	return training, nil
}

// eventError is the RMS difference between model and market probabilities for one event
func (rs *RatingsSolver) eventError(t trainingEvent, ratings Ratings, homeAdvantage float64) (float64, error) {
	matrix := NewScoreMatrix(ratings[t.home]*homeAdvantage, ratings[t.away], rs.rho, rs.gridSize)
	modelProbs, err := rs.modelSelector.ModelProbabilities(t.event, matrix)
	if err != nil {
		return 0, err
	}
	if len(modelProbs) != len(t.marketProbs) {
		return 0, fmt.Errorf("event %s: model gives %d probabilities, market %d",
			t.event.Name, len(modelProbs), len(t.marketProbs))
	}
	return rmsError(modelProbs, t.marketProbs), nil
}

func (rs *RatingsSolver) meanError(training []trainingEvent, ratings Ratings, homeAdvantage float64) (float64, error) {
	if len(training) == 0 {
		return 0, nil
	}
	var total float64
	for _, t := range training {
		e, err := rs.eventError(t, ratings, homeAdvantage)
		if err != nil {
			return 0, err
		}
		total += e
	}
	return total / float64(len(training)), nil
}

// CalcError returns the mean per-event RMS error of the given ratings
func (rs *RatingsSolver) CalcError(events []Event, ratings Ratings, homeAdvantage float64) (float64, error) {
	training, err := rs.prepare(events, ratings)
	if err != nil {
		return 0, err
	}
	return rs.meanError(training, ratings, homeAdvantage)
}

// Solve minimises the mean RMS error over events. Every team in ratings is a
// parameter; teams without training events keep their starting rating.
// Home advantage is fitted from the middle of its range unless homeAdvantage is given.
// Failing to converge is not an error: the best point found is returned.
func (rs *RatingsSolver) Solve(ctx context.Context, events []Event, ratings Ratings, homeAdvantage *float64, maxIterations int) (*SolverResult, error) {
	training, err := rs.prepare(events, ratings)
	if err != nil {
		return nil, err
	}
	// Lines and quote shapes are checked once so the objective cannot fail
	for _, t := range training {
		if _, err := rs.eventError(t, ratings, rs.homeAdvantageRange.Mid()); err != nil {
			return nil, err
		}
	}

	teamNames := ratings.Names()
	x0 := make([]float64, 0, len(teamNames)+1)
	bounds := make([]Range, 0, len(teamNames)+1)
	for _, name := range teamNames {
		x0 = append(x0, ratings[name])
		bounds = append(bounds, rs.ratingRange)
	}
	fitHomeAdvantage := homeAdvantage == nil
	if fitHomeAdvantage {
		x0 = append(x0, rs.homeAdvantageRange.Mid())
		bounds = append(bounds, rs.homeAdvantageRange)
	}

	unpack := func(x []float64) (Ratings, float64) {
		// fresh map per evaluation; population candidates are scored concurrently
		candidate := ratings.Copy()
		for i, name := range teamNames {
			candidate[name] = x[i]
		}
		if fitHomeAdvantage {
			return candidate, x[len(teamNames)]
		}
		return candidate, *homeAdvantage
	}

	objective := func(x []float64) float64 {
		candidate, ha := unpack(x)
		e, _ := rs.meanError(training, candidate, ha)
		return e
	}

	rs.logger.WithFields(logrus.Fields{
		"teams":          len(teamNames),
		"events":         len(training),
		"fit_home_adv":   fitHomeAdvantage,
		"max_iterations": maxIterations,
	}).Info("solving ratings")

	optimum, err := rs.minimizer.Minimize(ctx, objective, x0, bounds, maxIterations)
	if err != nil {
		return nil, err
	}

	solved, ha := unpack(clampTo(optimum.X, bounds))
	result := &SolverResult{
		Ratings:       solved,
		HomeAdvantage: ha,
		Error:         optimum.F,
		Iterations:    optimum.Iterations,
		Evaluations:   optimum.Evaluations,
		Converged:     optimum.Converged,
	}

	fields := logrus.Fields{
		"error":          result.Error,
		"home_advantage": result.HomeAdvantage,
		"iterations":     result.Iterations,
		"evaluations":    result.Evaluations,
	}
	switch {
	case result.Error > rs.maxError:
		rs.logger.WithFields(fields).Warn("solver error above maximum tolerable")
	case result.Error <= rs.excellentError:
		rs.logger.WithFields(fields).Info("solver error excellent")
	default:
		rs.logger.WithFields(fields).Info("solver finished")
	}

	return result, nil
}

// RandomRatings draws each team's rating uniformly within the range
func RandomRatings(teamNames []string, r Range, rng *rand.Rand) Ratings {
	ratings := make(Ratings, len(teamNames))
	for _, name := range teamNames {
		ratings[name] = r.Min + rng.Float64()*(r.Max-r.Min)
	}
	return ratings
}

// RatingsFromTable maps league table rank linearly onto the range, best team
// at the top. Before any results are in the ratings are random.
func RatingsFromTable(table []TeamRow, r Range, rng *rand.Rand) Ratings {
	names := make([]string, len(table))
	played := 0
	for i, row := range table {
		names[i] = row.Name
		played += row.Played
	}
	if played == 0 || len(table) < 2 {
		return RandomRatings(names, r, rng)
	}

	// table is already ordered best first
	ratings := make(Ratings, len(table))
	step := (r.Max - r.Min) / float64(len(table)-1)
	for i, name := range names {
		ratings[name] = r.Max - float64(i)*step
	}
	return ratings
}
