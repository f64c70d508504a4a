package outrights

import (
	"fmt"
	"runtime"
	"sort"
)

// Score is a single simulated or realised scoreline
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// MatchOddsQuote holds home/draw/away decimal prices
type MatchOddsQuote struct {
	Prices []float64 `json:"prices"`
}

// HandicapQuote holds a two-way price pair at a goal line.
// Used for both Asian handicaps (home/away) and over/under goals (over/under).
type HandicapQuote struct {
	Prices []float64 `json:"prices"`
	Line   float64   `json:"line"`
}

// Event represents a fixture "Home vs Away" with an optional score and market quotes
type Event struct {
	Name           string          `json:"name"`
	Date           string          `json:"date"`
	Score          []int           `json:"score,omitempty"`
	MatchOdds      *MatchOddsQuote `json:"match_odds,omitempty"`
	AsianHandicaps *HandicapQuote  `json:"asian_handicaps,omitempty"`
	OverUnderGoals *HandicapQuote  `json:"over_under_goals,omitempty"`
}

// Teams returns the home and away team names of the event
func (e Event) Teams() (string, string, error) {
	return ParseEventName(e.Name)
}

// HasScore reports whether the event carries a realised score
func (e Event) HasScore() bool {
	return len(e.Score) == 2
}

// Ratings maps team names to Poisson ratings
type Ratings map[string]float64

// Copy returns an independent copy of the ratings
func (r Ratings) Copy() Ratings {
	out := make(Ratings, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Names returns the team names in sorted order
func (r Ratings) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the rating for a team, failing for teams that have no rating
func (r Ratings) Lookup(teamName string) (float64, error) {
	rating, ok := r[teamName]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no rating", ErrUnknownTeam, teamName)
	}
	return rating, nil
}

// TeamRow is a league table row
type TeamRow struct {
	Name           string `json:"name"`
	Points         int    `json:"points"`
	GoalDifference int    `json:"goal_difference"`
	Played         int    `json:"played"`
}

// Team represents a team with its table position and all model outputs
type Team struct {
	Name                  string    `json:"name"`
	Points                int       `json:"points"`
	GoalDifference        int       `json:"goal_difference"`
	Played                int       `json:"played"`
	PoissonRating         float64   `json:"poisson_rating"`
	PointsPerGameRating   float64   `json:"points_per_game_rating"`
	GoalDifferenceRating  float64   `json:"goal_difference_rating"` // Expected goal difference per game
	ExpectedSeasonPoints  float64   `json:"expected_season_points"`
	TrainingEvents        int       `json:"training_events"`
	MeanTrainingError     float64   `json:"mean_training_error"`
	StdTrainingError      float64   `json:"std_training_error"`
	PositionProbabilities []float64 `json:"position_probabilities"`
}

// Market represents an outright market
type Market struct {
	Name         string    `json:"name"`
	Payoff       string    `json:"payoff"`          // Payoff expression like "1|4x0.25|19x0"
	ParsedPayoff []float64 `json:"-"`               // Parsed version, not serialized
	Teams        []string  `json:"teams,omitempty"` // Computed teams for this market
	Include      []string  `json:"include,omitempty"`
	Exclude      []string  `json:"exclude,omitempty"`
}

// Scoped reports whether the market is ranked within its own team group
func (m Market) Scoped() bool {
	return len(m.Include) > 0 || len(m.Exclude) > 0
}

// Mark is the expected payoff of a team in a market
type Mark struct {
	Market string  `json:"market"`
	Team   string  `json:"team"`
	Mark   float64 `json:"mark"`
}

// Range is a closed parameter interval
type Range struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// Mid returns the midpoint of the range
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Clamp restricts x to the range
func (r Range) Clamp(x float64) float64 {
	if x < r.Min {
		return r.Min
	}
	if x > r.Max {
		return r.Max
	}
	return x
}

// SolverResult is the output of a ratings solve
type SolverResult struct {
	Ratings       Ratings `json:"ratings"`
	HomeAdvantage float64 `json:"home_advantage"`
	Error         float64 `json:"error"`
	Iterations    int     `json:"iterations"`
	Evaluations   int     `json:"evaluations"`
	Converged     bool    `json:"converged"`
}

// SimParams holds all solver and simulation parameterization values
type SimParams struct {
	// Score matrix
	GridSize int     `json:"grid_size"` // Goals 0..GridSize-1 per side (default: 11)
	Rho      float64 `json:"rho"`       // Dixon-Coles parameter (default: 0.1)

	// Solver
	RatingRange        Range   `json:"rating_range"`
	HomeAdvantageRange Range   `json:"home_advantage_range"`
	MaxIterations      int     `json:"max_iterations"`
	Strategy           string  `json:"strategy"`        // genetic, population, hybrid, neldermead
	ExcellentError     float64 `json:"excellent_error"` // Early stop threshold
	MaxError           float64 `json:"max_error"`       // Warn above this
	TrainingWindow     int     `json:"training_window"` // Training events as a multiple of team count

	// Simulation
	Paths           int     `json:"paths"`
	Workers         int     `json:"workers"`
	Seed            uint64  `json:"seed"`
	GDMultiplier    float64 `json:"gd_multiplier"`
	NoiseMultiplier float64 `json:"noise_multiplier"`
}

// DefaultSimParams returns default solver and simulation values
func DefaultSimParams() *SimParams {
	return &SimParams{
		GridSize: 11,
		Rho:      0.1,

		RatingRange:        Range{Min: 0, Max: 6},
		HomeAdvantageRange: Range{Min: 1, Max: 1.5},
		MaxIterations:      100,
		Strategy:           StrategyGenetic,
		ExcellentError:     0.03,
		MaxError:           0.05,
		TrainingWindow:     3,

		Paths:           1000,
		Workers:         runtime.NumCPU(),
		Seed:            1,
		GDMultiplier:    1e-4,
		NoiseMultiplier: 1e-8,
	}
}
