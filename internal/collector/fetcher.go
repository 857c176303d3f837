package collector

import (
	"context"
	"fmt"
	"time"

	"TickerFeed/internal/model"
)

// Per-call deadlines.
const (
	SpotTimeout   = 10 * time.Second
	SeriesTimeout = 15 * time.Second
)

// Fetcher defines the interface for fetching market data from one provider.
type Fetcher interface {
	// FetchBatchSpot returns quotes keyed by provider id. Ids the provider
	// did not return are simply absent.
	FetchBatchSpot(ctx context.Context, ids []string) (map[string]model.Quote, error)
	FetchSingleSpot(ctx context.Context, id string) (float64, error)
	// FetchSeries returns raw history in ascending time order.
	FetchSeries(ctx context.Context, id string, tf model.Timeframe) ([]model.PricePoint, error)
	Name() string
}

// FetchError is returned by every adapter call. Kind is one of the model.Err* values.
type FetchError struct {
	Provider   string
	Op         string
	Kind       error
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func failure(provider, op string, kind error, err error) error {
	return &FetchError{Provider: provider, Op: op, Kind: kind, Err: err}
}
