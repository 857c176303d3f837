package calculator

import (
	"errors"
	"math"

	"TickerFeed/internal/model"
)

// PriceRange scans the points and returns the lowest and highest price.
func PriceRange(points []model.PricePoint) (low, high float64, err error) {
	if len(points) == 0 {
		return 0, 0, errors.New("no price points provided")
	}
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, p := range points {
		if p.Price > high {
			high = p.Price
		}
		if p.Price < low {
			low = p.Price
		}
	}
	return low, high, nil
}
