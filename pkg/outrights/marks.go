package outrights

// DefaultMarketKey is the position-probability key for the whole league
const DefaultMarketKey = "default"

// PositionSource yields position probabilities for a group of teams
type PositionSource interface {
	PositionProbabilities(teamNames []string) (map[string][]float64, error)
}

// CalcPositionProbabilities returns whole-league probabilities under DefaultMarketKey
// plus one entry per include/exclude market, ranked within that market's teams
func CalcPositionProbabilities(sim PositionSource, markets []Market) (map[string]map[string][]float64, error) {
	defaultProbs, err := sim.PositionProbabilities(nil)
	if err != nil {
		return nil, err
	}
	positionProbs := map[string]map[string][]float64{DefaultMarketKey: defaultProbs}

	for _, market := range markets {
		if !market.Scoped() {
			continue
		}
		probs, err := sim.PositionProbabilities(market.Teams)
		if err != nil {
			return nil, err
		}
		positionProbs[market.Name] = probs
	}
	return positionProbs, nil
}

// CalcMarks returns the expected payoff of every team in every market,
// in market order then market team order
func CalcMarks(positionProbs map[string]map[string][]float64, markets []Market) []Mark {
	var marks []Mark
	for _, market := range markets {
		key := DefaultMarketKey
		if market.Scoped() {
			key = market.Name
		}
		marketProbs := positionProbs[key]

		for _, teamName := range market.Teams {
			var mark float64
			for position, prob := range marketProbs[teamName] {
				if position < len(market.ParsedPayoff) {
					mark += prob * market.ParsedPayoff[position]
				}
			}
			marks = append(marks, Mark{Market: market.Name, Team: teamName, Mark: mark})
		}
	}
	return marks
}
