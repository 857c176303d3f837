package model

import (
	"fmt"
	"strings"
	"time"
)

// Class is the asset class of an instrument. It decides which provider serves it.
type Class uint8

const (
	ClassCrypto Class = iota
	ClassEquity
	ClassForex
)

func (c Class) String() string {
	switch c {
	case ClassCrypto:
		return "crypto"
	case ClassEquity:
		return "equity"
	case ClassForex:
		return "forex"
	default:
		return "unknown"
	}
}

// ParseClass accepts the config spelling of a class. "stock" is an alias for equity.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crypto":
		return ClassCrypto, nil
	case "equity", "stock":
		return ClassEquity, nil
	case "forex", "fx":
		return ClassForex, nil
	default:
		return 0, fmt.Errorf("unknown instrument class %q", s)
	}
}

// Instrument is one tracked symbol as configured.
type Instrument struct {
	Symbol         string
	ProviderID     string // CoinGecko id, CoinMarketCap slug or TwelveData symbol
	Class          Class
	Enabled        bool
	TimeMultiplier float64
}

// Key returns the stable identifier used for persisted data.
func (i Instrument) Key() string {
	return i.Class.String() + ":" + i.ProviderID
}

// Quote is the normalized spot record returned by every provider.
type Quote struct {
	Price     float64
	Change24h float64
	// Changes holds provider-reported per-timeframe percent changes when HasChanges is set.
	Changes    [TimeframeCount]float64
	HasChanges bool
}

// PricePoint is one raw historical observation.
type PricePoint struct {
	Time  time.Time
	Price float64
}
