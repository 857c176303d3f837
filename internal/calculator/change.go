package calculator

import (
	"math"

	"TickerFeed/internal/model"
)

// DeriveChange estimates the percent change across a series from its first
// and last samples. ok is false when the series cannot support an estimate:
// invalid, flat, or starting at (near) zero.
func DeriveChange(s model.Series) (pct float64, ok bool) {
	if !s.Consistent() {
		return 0, false
	}
	if s.Max-s.Min < Epsilon {
		return 0, false
	}
	start := s.Price(0)
	end := s.Price(int(s.Count) - 1)
	if math.Abs(start) < Epsilon {
		return 0, false
	}
	return (end - start) / start * 100, true
}
