package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SeriesPoints is the fixed width of every resampled series (one sample per display column).
const SeriesPoints = 64

// SeriesBlobSize is the exact persisted size of a Series:
// samples, count, min, max, valid.
const SeriesBlobSize = SeriesPoints + 1 + 8 + 8 + 1

// Timeframe is one of the fixed historical windows.
type Timeframe uint8

const (
	Timeframe24h Timeframe = iota
	Timeframe7d
	Timeframe30d
	Timeframe90d
	TimeframeCount = 4
)

// Timeframes lists all windows in display order.
var Timeframes = [TimeframeCount]Timeframe{Timeframe24h, Timeframe7d, Timeframe30d, Timeframe90d}

func (tf Timeframe) String() string {
	switch tf {
	case Timeframe24h:
		return "24H"
	case Timeframe7d:
		return "7D"
	case Timeframe30d:
		return "30D"
	case Timeframe90d:
		return "90D"
	default:
		return "?"
	}
}

// Window describes the query parameters a provider needs for a timeframe.
type Window struct {
	Days       int    // days back (CoinGecko / CoinMarketCap)
	Interval   string // TwelveData interval
	OutputSize int    // TwelveData number of points
}

// Window returns the query window for tf. Unknown values fall back to 24h.
func (tf Timeframe) Window() Window {
	switch tf {
	case Timeframe7d:
		return Window{Days: 7, Interval: "1day", OutputSize: 7}
	case Timeframe30d:
		return Window{Days: 30, Interval: "1day", OutputSize: 30}
	case Timeframe90d:
		return Window{Days: 90, Interval: "1day", OutputSize: 90}
	default:
		return Window{Days: 1, Interval: "1h", OutputSize: 24}
	}
}

// Series is a fixed-width quantized price history.
// Sample s decodes to Min + s/255*(Max-Min).
type Series struct {
	Samples [SeriesPoints]uint8
	Count   uint8
	Min     float64
	Max     float64
	Valid   bool
}

// Price de-quantizes sample i.
func (s *Series) Price(i int) float64 {
	return s.Min + float64(s.Samples[i])/255*(s.Max-s.Min)
}

// Consistent reports whether a valid series satisfies its invariants.
func (s *Series) Consistent() bool {
	return s.Valid && s.Count >= 2 && int(s.Count) <= SeriesPoints && s.Max >= s.Min &&
		!math.IsNaN(s.Min) && !math.IsNaN(s.Max)
}

// MarshalBinary encodes the series into its fixed-size layout.
func (s *Series) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SeriesBlobSize)
	copy(buf, s.Samples[:])
	off := SeriesPoints
	buf[off] = s.Count
	off++
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(s.Min))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(s.Max))
	off += 8
	if s.Valid {
		buf[off] = 1
	}
	return buf, nil
}

// UnmarshalBinary decodes a fixed-size blob. Any other length is rejected.
func (s *Series) UnmarshalBinary(data []byte) error {
	if len(data) != SeriesBlobSize {
		return fmt.Errorf("%w: series blob is %d bytes, want %d", ErrPersistence, len(data), SeriesBlobSize)
	}
	var out Series
	copy(out.Samples[:], data[:SeriesPoints])
	off := SeriesPoints
	out.Count = data[off]
	off++
	out.Min = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	out.Max = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	out.Valid = data[off] == 1
	*s = out
	return nil
}
