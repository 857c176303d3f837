package recorder

import (
	"time"

	"TickerFeed/internal/model"
)

// QuoteEvent records one accepted spot price.
type QuoteEvent struct {
	Symbol    string
	Provider  string
	Cadence   string // "batch" or "single"
	Price     float64
	Change24h float64
	At        time.Time
}

// SeriesEvent records one refreshed history window.
type SeriesEvent struct {
	Symbol    string
	Provider  string
	Timeframe model.Timeframe
	RawPoints int
	PriceMin  float64
	PriceMax  float64
	Change    float64
	Derived   bool // Change was estimated from the series
	At        time.Time
}

// Recorder persists fetch history for later analysis.
type Recorder interface {
	RecordQuote(evt *QuoteEvent) error
	RecordSeries(evt *SeriesEvent) error
	Close() error
}

// PriceHistory is implemented by recorders that can answer the last known
// price for a symbol, used to seed spot prices after a restart.
type PriceHistory interface {
	LatestPrice(symbol string) (price float64, at time.Time, err error)
}
