package outrights

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePayoff parses payoff expressions like "1|4x0.25|19x0" meaning 1 winner gets 1, 4 get 0.25, 19 losers get 0
func ParsePayoff(payoffExpr string) ([]float64, error) {
	if strings.TrimSpace(payoffExpr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidPayoff)
	}

	var payoff []float64
	for _, expr := range strings.Split(payoffExpr, "|") {
		tokens := strings.Split(strings.TrimSpace(expr), "x")

		n := 1
		var valueToken string
		switch len(tokens) {
		case 1:
			valueToken = tokens[0]
		case 2:
			count, err := strconv.Atoi(tokens[0])
			if err != nil || count < 1 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPayoff, expr)
			}
			n = count
			valueToken = tokens[1]
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidPayoff, expr)
		}

		v, err := strconv.ParseFloat(valueToken, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPayoff, expr)
		}
		for i := 0; i < n; i++ {
			payoff = append(payoff, v)
		}
	}

	return payoff, nil
}

// InitMarkets resolves each market's team list and payoff against the league.
// Every problem found across all markets is reported in a single ValidationErrors.
func InitMarkets(teamNames []string, markets []Market) error {
	known := teamSet(teamNames)
	var errs ValidationErrors

	for i := range markets {
		market := &markets[i]
		field := fmt.Sprintf("markets[%d]", i)
		if market.Name != "" {
			field = fmt.Sprintf("markets[%s]", market.Name)
		}

		if strings.Contains(market.Name, "/") {
			errs.add(field, "market name %q must not contain '/'", market.Name)
		}
		if strings.Contains(market.Name, "Finish") {
			errs.add(field, "market name %q must not contain 'Finish'", market.Name)
		}
		if len(market.Include) > 0 && len(market.Exclude) > 0 {
			errs.add(field, "market %s cannot have both include and exclude fields", market.Name)
			continue
		}

		invalid := false
		seen := make(map[string]bool)
		for _, teamName := range append(append([]string{}, market.Include...), market.Exclude...) {
			if !known[teamName] {
				errs.add(field, "market %s has unknown team %s", market.Name, teamName)
				invalid = true
			}
			if seen[teamName] {
				errs.add(field, "market %s lists team %s more than once", market.Name, teamName)
				invalid = true
			}
			seen[teamName] = true
		}
		if invalid {
			continue
		}

		switch {
		case len(market.Include) > 0:
			market.Teams = append([]string{}, market.Include...)
		case len(market.Exclude) > 0:
			excluded := teamSet(market.Exclude)
			market.Teams = nil
			for _, teamName := range teamNames {
				if !excluded[teamName] {
					market.Teams = append(market.Teams, teamName)
				}
			}
		default:
			market.Teams = append([]string{}, teamNames...)
		}

		parsedPayoff, err := ParsePayoff(market.Payoff)
		if err != nil {
			errs.add(field, "market %s: %v", market.Name, err)
			continue
		}
		market.ParsedPayoff = parsedPayoff

		if len(market.ParsedPayoff) != len(market.Teams) {
			errs.add(field, "market %s payoff length (%d) does not match teams count (%d)",
				market.Name, len(market.ParsedPayoff), len(market.Teams))
		}
	}

	return errs.errOrNil()
}
