package outrights

import "errors"

var (
	// ErrUnknownTeam is returned when a fixture, market or request names a team
	// that is not part of the league or has no rating.
	ErrUnknownTeam = errors.New("outrights: unknown team")

	// ErrUnsupportedLine is returned for handicap/goal lines that are not
	// integer, half, quarter or three-quarter lines.
	ErrUnsupportedLine = errors.New("outrights: unsupported line")

	// ErrFixtureCount is returned when played plus remaining fixtures do not add
	// up to a complete set of rounds.
	ErrFixtureCount = errors.New("outrights: incorrect number of games")

	// ErrMissingQuote is returned by selectors when an event lacks the quote they read.
	ErrMissingQuote = errors.New("outrights: event has no quote for selector")

	// ErrInvalidPrice is returned when a price is not a positive number.
	ErrInvalidPrice = errors.New("outrights: invalid price")

	// ErrInvalidPayoff is returned for malformed payoff expressions.
	ErrInvalidPayoff = errors.New("outrights: invalid payoff")

	// ErrInvalidEventName is returned for event names not in "Home vs Away" form.
	ErrInvalidEventName = errors.New("outrights: invalid event name")

	// ErrInvalidRequest is returned for requests naming an unknown selector or
	// strategy, or too few teams.
	ErrInvalidRequest = errors.New("outrights: invalid request")
)

// IsInputError reports whether err was caused by the caller's input rather
// than by the computation itself.
func IsInputError(err error) bool {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	for _, target := range []error{
		ErrInvalidRequest,
		ErrUnknownTeam,
		ErrUnsupportedLine,
		ErrFixtureCount,
		ErrMissingQuote,
		ErrInvalidPrice,
		ErrInvalidPayoff,
		ErrInvalidEventName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
