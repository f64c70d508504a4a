package outrights

import (
	"fmt"
	"math"
)

// Demargin converts decimal prices into probabilities by normalising the
// inverse-price shares, removing the bookmaker overround
func Demargin(prices []float64) ([]float64, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no prices", ErrInvalidPrice)
	}
	implied := make([]float64, len(prices))
	for i, price := range prices {
		if !(price > 0) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
		}
		implied[i] = 1 / price
	}
	return normalise(implied), nil
}

// Overround returns the summed implied probability of a price set minus one
func Overround(prices []float64) float64 {
	var total float64
	for _, price := range prices {
		if price > 0 {
			total += 1 / price
		}
	}
	return total - 1
}

// Price returns the fair decimal price for a probability.
// Zero probability maps to an infinite price.
func Price(prob float64) float64 {
	if prob <= 0 {
		return math.Inf(1)
	}
	return 1 / prob
}
