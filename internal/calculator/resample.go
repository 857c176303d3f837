package calculator

import (
	"fmt"
	"math"

	"TickerFeed/internal/model"
)

// Epsilon guards divisions by a price or a price range that is effectively zero.
const Epsilon = 0.0001

// Resample reduces an ascending raw series to model.SeriesPoints quantized
// samples by linear interpolation between neighbouring raw points.
func Resample(points []model.PricePoint) (model.Series, error) {
	var out model.Series
	raw := len(points)
	if raw < 2 {
		return out, fmt.Errorf("%w: insufficient data (%d points)", model.ErrData, raw)
	}

	low, high, err := PriceRange(points)
	if err != nil {
		return out, fmt.Errorf("%w: %v", model.ErrData, err)
	}
	rng := math.Max(high-low, Epsilon)

	const n = model.SeriesPoints
	for i := 0; i < n; i++ {
		pos := float64(i) * float64(raw-1) / float64(n-1)
		lo := int(math.Floor(pos))
		if lo > raw-1 {
			lo = raw - 1
		}
		hi := min(lo+1, raw-1)
		frac := pos - float64(lo)

		price := points[lo].Price + (points[hi].Price-points[lo].Price)*frac
		norm := (price - low) / rng
		// Interpolation rounding can leave norm a hair outside [0,1].
		norm = math.Min(math.Max(norm, 0), 1)
		out.Samples[i] = uint8(norm * 255)
	}

	out.Count = n
	out.Min = low
	out.Max = high
	out.Valid = true
	return out, nil
}
