package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"TickerFeed/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Unknown ids fail with model.ErrData; Err, when set, fails every call.
type MockFetcher struct {
	Label  string
	Quotes map[string]model.Quote
	Series map[string][]model.PricePoint
	Err    error

	mu    sync.Mutex
	Calls []string // "batch:a,b", "single:id", "series:id/24H"
}

func (m *MockFetcher) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return "mock"
}

func (m *MockFetcher) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallLog returns a copy of the calls made so far.
func (m *MockFetcher) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *MockFetcher) FetchBatchSpot(_ context.Context, ids []string) (map[string]model.Quote, error) {
	call := "batch:"
	for i, id := range ids {
		if i > 0 {
			call += ","
		}
		call += id
	}
	m.record(call)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]model.Quote)
	for _, id := range ids {
		if q, ok := m.Quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (m *MockFetcher) FetchSingleSpot(_ context.Context, id string) (float64, error) {
	m.record("single:" + id)
	if m.Err != nil {
		return 0, m.Err
	}
	q, ok := m.Quotes[id]
	if !ok {
		return 0, failure(m.Name(), "single spot", model.ErrData, errors.New("no quote for "+id))
	}
	return q.Price, nil
}

func (m *MockFetcher) FetchSeries(_ context.Context, id string, tf model.Timeframe) ([]model.PricePoint, error) {
	m.record("series:" + id + "/" + tf.String())
	if m.Err != nil {
		return nil, m.Err
	}
	if points, ok := m.Series[id]; ok {
		return points, nil
	}
	return nil, failure(m.Name(), "series", model.ErrData, errors.New("no series for "+id))
}

// GenerateSeries builds count ascending points moving linearly from start to end.
func GenerateSeries(start, end float64, count int) []model.PricePoint {
	points := make([]model.PricePoint, count)
	base := time.Now().Add(-time.Duration(count) * time.Hour)
	for i := 0; i < count; i++ {
		p := start
		if count > 1 {
			p = start + (end-start)*float64(i)/float64(count-1)
		}
		points[i] = model.PricePoint{Time: base.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return points
}
