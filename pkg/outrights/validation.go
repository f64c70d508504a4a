package outrights

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

func (e *ValidationErrors) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// errOrNil returns the aggregate as an error only when it holds problems
func (e ValidationErrors) errOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// ValidateHandicaps checks that every handicapped team is in the league
func ValidateHandicaps(teamNames []string, handicaps map[string]int) error {
	known := teamSet(teamNames)
	var errs ValidationErrors
	for teamName := range handicaps {
		if !known[teamName] {
			errs.add("handicaps", "unknown team %s", teamName)
		}
	}
	return errs.errOrNil()
}

// ValidateRatings checks that every team in the league has a rating
func ValidateRatings(teamNames []string, ratings Ratings) error {
	var errs ValidationErrors
	for _, teamName := range teamNames {
		if _, ok := ratings[teamName]; !ok {
			errs.add("ratings", "%s has no rating", teamName)
		}
	}
	return errs.errOrNil()
}

// Validate checks the parameters the score matrix, solver and simulator
// depend on. Rho must stay below 1 so every Dixon-Coles factor is positive.
func (p *SimParams) Validate() error {
	var errs ValidationErrors
	if p.GridSize < 1 {
		errs.add("grid_size", "must be at least 1, got %d", p.GridSize)
	}
	if p.Rho < 0 || p.Rho >= 1 {
		errs.add("rho", "must be in [0, 1), got %g", p.Rho)
	}
	if p.Paths < 1 {
		errs.add("paths", "must be at least 1, got %d", p.Paths)
	}
	if p.MaxIterations < 0 {
		errs.add("max_iterations", "must not be negative, got %d", p.MaxIterations)
	}
	if p.TrainingWindow < 0 {
		errs.add("training_window", "must not be negative, got %d", p.TrainingWindow)
	}
	if p.RatingRange.Min > p.RatingRange.Max {
		errs.add("rating_range", "min %g exceeds max %g", p.RatingRange.Min, p.RatingRange.Max)
	}
	if p.RatingRange.Min < 0 {
		errs.add("rating_range", "min must not be negative, got %g", p.RatingRange.Min)
	}
	if p.HomeAdvantageRange.Min > p.HomeAdvantageRange.Max {
		errs.add("home_advantage_range", "min %g exceeds max %g", p.HomeAdvantageRange.Min, p.HomeAdvantageRange.Max)
	}
	if p.HomeAdvantageRange.Min < 0 {
		errs.add("home_advantage_range", "min must not be negative, got %g", p.HomeAdvantageRange.Min)
	}
	return errs.errOrNil()
}

func teamSet(teamNames []string) map[string]bool {
	set := make(map[string]bool, len(teamNames))
	for _, name := range teamNames {
		set[name] = true
	}
	return set
}
