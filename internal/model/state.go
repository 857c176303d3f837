package model

import "time"

// InstrumentState is the mutable market record for one instrument.
type InstrumentState struct {
	Symbol          string
	Class           Class
	Price           float64
	Change24h       float64 // percent
	Changes         [TimeframeCount]float64
	PriceValid      bool
	LastPriceUpdate time.Time
	Series          [TimeframeCount]Series
}

// Reading is what a renderer gets for one screen: a consistent copy of the
// instrument plus the timeframe it asked for.
type Reading struct {
	State     InstrumentState
	Timeframe Timeframe
}

// Series returns the series for the requested timeframe.
func (r Reading) Series() Series {
	return r.State.Series[r.Timeframe]
}

// Change returns the percent change for the requested timeframe, falling back
// to the 24h figure when no per-timeframe value is known.
func (r Reading) Change() float64 {
	if c := r.State.Changes[r.Timeframe]; c != 0 {
		return c
	}
	return r.State.Change24h
}
