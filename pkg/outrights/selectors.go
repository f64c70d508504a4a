package outrights

import (
	"fmt"
	"strings"
)

// ModelSelector extracts the probability vector the solver fits from a score matrix
type ModelSelector interface {
	ModelProbabilities(e Event, m *ScoreMatrix) ([]float64, error)
}

// MarketSelector extracts the market-implied probability vector from an event's quotes
type MarketSelector interface {
	MarketProbabilities(e Event) ([]float64, error)
}

// Selector pairs a model and a market view of the same bet type
type Selector interface {
	ModelSelector
	MarketSelector
	Name() string
	// Accepts reports whether the event carries the quotes this selector reads
	Accepts(e Event) bool
}

const (
	SelectorMatchOdds      = "match_odds"
	SelectorAsianHandicaps = "asian_handicaps"
	SelectorOverUnderGoals = "over_under_goals"
	SelectorHandicapTotals = "handicap_totals"
)

// SelectorByName resolves a selector from its configuration name
func SelectorByName(name string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SelectorMatchOdds, "1x2":
		return MatchOddsSelector{}, nil
	case SelectorAsianHandicaps, "ah":
		return AsianHandicapSelector{}, nil
	case SelectorOverUnderGoals, "ou":
		return OverUnderSelector{}, nil
	case SelectorHandicapTotals, "ah_ou":
		return HandicapTotalsSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown selector %q", name)
	}
}

// MatchOddsSelector fits home/draw/away probabilities
type MatchOddsSelector struct{}

// Name returns the selector configuration name
func (MatchOddsSelector) Name() string { return SelectorMatchOdds }

// Accepts requires a three-way match odds quote
func (MatchOddsSelector) Accepts(e Event) bool {
	return e.MatchOdds != nil && len(e.MatchOdds.Prices) == 3
}

// ModelProbabilities returns the grid home/draw/away probabilities
func (MatchOddsSelector) ModelProbabilities(_ Event, m *ScoreMatrix) ([]float64, error) {
	odds := m.MatchOdds()
	return odds[:], nil
}

// MarketProbabilities de-margins the quoted 1X2 prices
func (s MatchOddsSelector) MarketProbabilities(e Event) ([]float64, error) {
	if !s.Accepts(e) {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingQuote, SelectorMatchOdds, e.Name)
	}
	return Demargin(e.MatchOdds.Prices)
}

// AsianHandicapSelector fits home/away handicap probabilities at the quoted line
type AsianHandicapSelector struct{}

// Name returns the selector configuration name
func (AsianHandicapSelector) Name() string { return SelectorAsianHandicaps }

// Accepts requires a two-way handicap quote
func (AsianHandicapSelector) Accepts(e Event) bool {
	return e.AsianHandicaps != nil && len(e.AsianHandicaps.Prices) == 2
}

// ModelProbabilities evaluates the grid at the quoted handicap line
func (s AsianHandicapSelector) ModelProbabilities(e Event, m *ScoreMatrix) ([]float64, error) {
	if !s.Accepts(e) {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingQuote, SelectorAsianHandicaps, e.Name)
	}
	probs, err := m.AsianHandicaps(e.AsianHandicaps.Line)
	if err != nil {
		return nil, err
	}
	return probs[:], nil
}

// MarketProbabilities de-margins the quoted handicap prices
func (s AsianHandicapSelector) MarketProbabilities(e Event) ([]float64, error) {
	if !s.Accepts(e) {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingQuote, SelectorAsianHandicaps, e.Name)
	}
	return Demargin(e.AsianHandicaps.Prices)
}

// OverUnderSelector fits over/under total goals probabilities at the quoted line
type OverUnderSelector struct{}

// Name returns the selector configuration name
func (OverUnderSelector) Name() string { return SelectorOverUnderGoals }

// Accepts requires a two-way totals quote
func (OverUnderSelector) Accepts(e Event) bool {
	return e.OverUnderGoals != nil && len(e.OverUnderGoals.Prices) == 2
}

// ModelProbabilities evaluates the grid at the quoted goals line
func (s OverUnderSelector) ModelProbabilities(e Event, m *ScoreMatrix) ([]float64, error) {
	if !s.Accepts(e) {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingQuote, SelectorOverUnderGoals, e.Name)
	}
	probs, err := m.OverUnderGoals(e.OverUnderGoals.Line)
	if err != nil {
		return nil, err
	}
	return probs[:], nil
}

// MarketProbabilities de-margins the quoted over/under prices
func (s OverUnderSelector) MarketProbabilities(e Event) ([]float64, error) {
	if !s.Accepts(e) {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingQuote, SelectorOverUnderGoals, e.Name)
	}
	return Demargin(e.OverUnderGoals.Prices)
}

// HandicapTotalsSelector fits the pair [handicap home, goals over]
type HandicapTotalsSelector struct{}

// Name returns the selector configuration name
func (HandicapTotalsSelector) Name() string { return SelectorHandicapTotals }

// Accepts requires both a handicap and a totals quote
func (HandicapTotalsSelector) Accepts(e Event) bool {
	return AsianHandicapSelector{}.Accepts(e) && OverUnderSelector{}.Accepts(e)
}

// ModelProbabilities returns the handicap home and goals over probabilities
func (HandicapTotalsSelector) ModelProbabilities(e Event, m *ScoreMatrix) ([]float64, error) {
	ah, err := AsianHandicapSelector{}.ModelProbabilities(e, m)
	if err != nil {
		return nil, err
	}
	ou, err := OverUnderSelector{}.ModelProbabilities(e, m)
	if err != nil {
		return nil, err
	}
	return []float64{ah[0], ou[0]}, nil
}

// MarketProbabilities returns the de-margined handicap home and goals over probabilities
func (HandicapTotalsSelector) MarketProbabilities(e Event) ([]float64, error) {
	ah, err := AsianHandicapSelector{}.MarketProbabilities(e)
	if err != nil {
		return nil, err
	}
	ou, err := OverUnderSelector{}.MarketProbabilities(e)
	if err != nil {
		return nil, err
	}
	return []float64{ah[0], ou[0]}, nil
}
