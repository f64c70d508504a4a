package outrights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// SolveRequest contains everything needed to calibrate ratings against market prices
type SolveRequest struct {
	Events        []Event    `json:"events"`
	Ratings       Ratings    `json:"ratings,omitempty"`    // Starting ratings; random within range when empty
	TeamNames     []string   `json:"team_names,omitempty"` // Used when Ratings is empty; defaults to the event teams
	HomeAdvantage *float64   `json:"home_advantage,omitempty"`
	MaxIterations int        `json:"max_iterations,omitempty"`
	Selector      string     `json:"selector,omitempty"`
	Params        *SimParams `json:"params,omitempty"` // Uses defaults if nil
}

// SimulationRequest contains everything needed to price a league's outright markets
type SimulationRequest struct {
	League        string         `json:"league"`
	TeamNames     []string       `json:"team_names,omitempty"` // Defaults to Ratings keys, then the event teams
	Events        []Event        `json:"events"`                // Results and quotes for the current season
	TrainingSet   []Event        `json:"training_set,omitempty"`
	Ratings       Ratings        `json:"ratings,omitempty"` // Starting ratings; seeded from the league table when empty
	HomeAdvantage *float64       `json:"home_advantage,omitempty"`
	Handicaps     map[string]int `json:"handicaps,omitempty"`
	Markets       []Market       `json:"markets,omitempty"`
	Rounds        int            `json:"rounds,omitempty"` // Defaults to RoundsFor(League)
	Selector      string         `json:"selector,omitempty"`
	Params        *SimParams     `json:"params,omitempty"` // Uses defaults if nil
}

// SimulationResult holds the simulated league and its market marks
type SimulationResult struct {
	League                string                          `json:"league,omitempty"`
	Teams                 []Team                          `json:"teams"`
	Marks                 []Mark                          `json:"outright_marks"`
	Markets               []Market                        `json:"markets,omitempty"`
	HomeAdvantage         float64                         `json:"home_advantage"`
	SolverError           float64                         `json:"solver_error"`
	Solver                *SolverResult                   `json:"solver"`
	RemainingFixtures     []string                        `json:"remaining_fixtures"`
	PositionProbabilities map[string]map[string][]float64 `json:"position_probabilities"`
	ProcessingTime        time.Duration                   `json:"processing_time"`
}

func paramsOrDefault(params *SimParams) *SimParams {
	if params == nil {
		return DefaultSimParams()
	}
	p := *params
	return &p
}

// newSolver builds a ratings solver from params, the selector name and the
// configured optimisation strategy
func newSolver(params *SimParams, selectorName string, logger logrus.FieldLogger) (*RatingsSolver, Selector, error) {
	selector, err := SelectorByName(selectorName)
	if err != nil {
		return nil, nil, err
	}
	minimizer, err := MinimizerByName(params.Strategy, params.Seed, logger)
	if err != nil {
		return nil, nil, err
	}
	if p, ok := minimizer.(*PopulationMinimizer); ok {
		p.ExcellentError = params.ExcellentError
		p.Workers = params.Workers
	}
	solver := NewRatingsSolver(
		WithSelector(selector),
		WithMinimizer(minimizer),
		WithRatingRange(params.RatingRange),
		WithHomeAdvantageRange(params.HomeAdvantageRange),
		WithMatrix(params.GridSize, params.Rho),
		WithThresholds(params.ExcellentError, params.MaxError),
		WithLogger(logger),
	)
	return solver, selector, nil
}

// Solve calibrates ratings for the request's events
func Solve(ctx context.Context, req SolveRequest, logger logrus.FieldLogger) (*SolverResult, error) {
	logger = loggerOrDiscard(logger)
	params := paramsOrDefault(req.Params)
	if req.MaxIterations > 0 {
		params.MaxIterations = req.MaxIterations
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("params validation failed: %w", err)
	}

	solver, _, err := newSolver(params, req.Selector, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ratings := req.Ratings.Copy()
	if len(ratings) == 0 {
		teamNames := req.TeamNames
		if len(teamNames) == 0 {
			teamNames = ExtractTeams(req.Events)
		}
		ratings = RandomRatings(teamNames, params.RatingRange, newRand(params.Seed, 1))
	}

	return solver.Solve(ctx, req.Events, ratings, req.HomeAdvantage, params.MaxIterations)
}

// Simulate runs the full pipeline for one league: league table, remaining
// fixtures, ratings calibration, season simulation and market marks
func Simulate(ctx context.Context, req SimulationRequest, logger logrus.FieldLogger) (*SimulationResult, error) {
	startTime := time.Now()
	logger = loggerOrDiscard(logger)
	if req.League != "" {
		logger = logger.WithField("league", req.League)
	}
	params := paramsOrDefault(req.Params)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("params validation failed: %w", err)
	}

	teamNames := append([]string{}, req.TeamNames...)
	if len(teamNames) == 0 {
		teamNames = req.Ratings.Names()
	}
	if len(teamNames) == 0 {
		teamNames = ExtractTeams(req.Events)
	}
	sort.Strings(teamNames)
	if len(teamNames) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 teams, got %d", ErrInvalidRequest, len(teamNames))
	}

	markets := make([]Market, len(req.Markets))
	copy(markets, req.Markets)
	if err := InitMarkets(teamNames, markets); err != nil {
		return nil, fmt.Errorf("market validation failed: %w", err)
	}
	if err := ValidateHandicaps(teamNames, req.Handicaps); err != nil {
		return nil, fmt.Errorf("handicap validation failed: %w", err)
	}

	var results []Event
	for _, e := range req.Events {
		if e.HasScore() {
			results = append(results, e)
		}
	}

	table, err := CalcLeagueTable(teamNames, results, req.Handicaps)
	if err != nil {
		return nil, err
	}
	rounds := req.Rounds
	if rounds <= 0 {
		rounds = RoundsFor(req.League)
	}
	remaining := CalcRemainingFixtures(teamNames, results, rounds)
	if err := ValidateFixtureCount(teamNames, results, remaining, rounds); err != nil {
		return nil, err
	}

	ratings := req.Ratings.Copy()
	if len(ratings) == 0 {
		ratings = RatingsFromTable(table, params.RatingRange, newRand(params.Seed, 1))
	}
	if err := ValidateRatings(teamNames, ratings); err != nil {
		return nil, err
	}

	solver, selector, err := newSolver(params, req.Selector, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	training := req.TrainingSet
	if len(training) == 0 {
		training = TrainingSet(req.Events, selector, params.TrainingWindow*len(teamNames))
	}

	logger.WithFields(logrus.Fields{
		"teams":     len(teamNames),
		"results":   len(results),
		"remaining": len(remaining),
		"training":  len(training),
		"markets":   len(markets),
	}).Info("simulating league")

	solverResult, err := solver.Solve(ctx, training, ratings, req.HomeAdvantage, params.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("ratings solver failed: %w", err)
	}

	sim, err := NewSimPoints(table, params.Paths, WithSimParams(params))
	if err != nil {
		return nil, err
	}
	for _, fixture := range remaining {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sim.Simulate(ctx, fixture, solverResult.Ratings, solverResult.HomeAdvantage); err != nil {
			return nil, err
		}
	}

	positionProbs, err := CalcPositionProbabilities(sim, markets)
	if err != nil {
		return nil, err
	}
	marks := CalcMarks(positionProbs, markets)

	trainingErrors, err := TrainingErrors(teamNames, training, solverResult.Ratings, solverResult.HomeAdvantage, params.GridSize, params.Rho)
	if err != nil {
		return nil, err
	}
	ppg, err := PointsPerGameRatings(teamNames, solverResult.Ratings, solverResult.HomeAdvantage, params.GridSize, params.Rho)
	if err != nil {
		return nil, err
	}
	gdRatings, err := GoalDifferenceRatings(teamNames, solverResult.Ratings, solverResult.HomeAdvantage, params.GridSize, params.Rho)
	if err != nil {
		return nil, err
	}
	seasonPoints, err := ExpectedSeasonPoints(table, remaining, solverResult.Ratings, solverResult.HomeAdvantage, params.GridSize, params.Rho)
	if err != nil {
		return nil, err
	}

	teams := make([]Team, len(table))
	for i, row := range table {
		errs := trainingErrors[row.Name]
		meanErr, stdErr := meanStd(errs)
		teams[i] = Team{
			Name:                  row.Name,
			Points:                row.Points,
			GoalDifference:        row.GoalDifference,
			Played:                row.Played,
			PoissonRating:         solverResult.Ratings[row.Name],
			PointsPerGameRating:   ppg[row.Name],
			GoalDifferenceRating:  gdRatings[row.Name],
			ExpectedSeasonPoints:  seasonPoints[row.Name],
			TrainingEvents:        len(errs),
			MeanTrainingError:     meanErr,
			StdTrainingError:      stdErr,
			PositionProbabilities: positionProbs[DefaultMarketKey][row.Name],
		}
	}

	result := &SimulationResult{
		League:                req.League,
		Teams:                 teams,
		Marks:                 marks,
		Markets:               markets,
		HomeAdvantage:         solverResult.HomeAdvantage,
		SolverError:           solverResult.Error,
		Solver:                solverResult,
		RemainingFixtures:     remaining,
		PositionProbabilities: positionProbs,
		ProcessingTime:        time.Since(startTime),
	}

	logger.WithFields(logrus.Fields{
		"solver_error":    result.SolverError,
		"home_advantage":  result.HomeAdvantage,
		"marks":           len(marks),
		"processing_time": result.ProcessingTime,
	}).Info("league simulation complete")

	return result, nil
}

// ExtractTeams returns the sorted unique team names appearing in events
func ExtractTeams(events []Event) []string {
	seen := make(map[string]bool)
	var teams []string
	for _, e := range events {
		home, away, err := e.Teams()
		if err != nil {
			continue
		}
		for _, name := range []string{home, away} {
			if !seen[name] {
				seen[name] = true
				teams = append(teams, name)
			}
		}
	}
	sort.Strings(teams)
	return teams
}
