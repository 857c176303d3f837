package collector

import "TickerFeed/internal/model"

// Settings carries the provider credentials and endpoints from configuration.
type Settings struct {
	TwelveDataKey    string
	CoinGeckoKey     string
	CoinMarketCapKey string

	TwelveDataURL    string
	CoinGeckoURL     string
	CoinMarketCapURL string

	Proxy string
}

// Routing decides which fetcher serves which request. It is fixed at
// construction; a configuration change builds a new Routing.
type Routing struct {
	// Batch serves the batch spot cadence for crypto instruments.
	Batch Fetcher
	// Single serves the round-robin spot cadence for equities and forex.
	Single Fetcher
	// Series serves history, per class.
	Series map[model.Class]Fetcher
	// Reported lists classes whose batch provider reports per-timeframe
	// changes. Their changes are never overwritten by series estimates.
	Reported map[model.Class]bool
}

// NewRouting prefers CoinMarketCap for crypto spot prices when a key is set
// and falls back to CoinGecko otherwise. History for crypto always comes from
// CoinGecko; equities and forex are served by TwelveData.
func NewRouting(s Settings) Routing {
	gecko := NewCoinGeckoFetcher(s.CoinGeckoURL, s.CoinGeckoKey, s.Proxy)
	twelve := NewTwelveDataFetcher(s.TwelveDataURL, s.TwelveDataKey, s.Proxy)

	r := Routing{
		Batch:  gecko,
		Single: twelve,
		Series: map[model.Class]Fetcher{
			model.ClassCrypto: gecko,
			model.ClassEquity: twelve,
			model.ClassForex:  twelve,
		},
		Reported: map[model.Class]bool{},
	}
	if s.CoinMarketCapKey != "" {
		r.Batch = NewCoinMarketCapFetcher(s.CoinMarketCapURL, s.CoinMarketCapKey, s.Proxy)
		r.Reported[model.ClassCrypto] = true
	}
	return r
}

// SeriesFor returns the history fetcher for a class, or nil.
func (r Routing) SeriesFor(c model.Class) Fetcher {
	return r.Series[c]
}

// DerivesChange reports whether percent changes for a class are estimated
// from its resampled series.
func (r Routing) DerivesChange(c model.Class) bool {
	return !r.Reported[c]
}
