package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerFeed/internal/cache"
	"TickerFeed/internal/calculator"
	"TickerFeed/internal/collector"
	"TickerFeed/internal/model"
	"TickerFeed/internal/recorder"
	"TickerFeed/internal/state"
)

type harness struct {
	engine *Engine
	mock   *collector.MockFetcher
	clock  time.Time
}

func (h *harness) advance(d time.Duration) { h.clock = h.clock.Add(d) }

func mockRouting(m collector.Fetcher, reported bool) collector.Routing {
	return collector.Routing{
		Batch:  m,
		Single: m,
		Series: map[model.Class]collector.Fetcher{
			model.ClassCrypto: m,
			model.ClassEquity: m,
			model.ClassForex:  m,
		},
		Reported: map[model.Class]bool{model.ClassCrypto: reported},
	}
}

func newHarnessWith(t *testing.T, store *cache.Store, instruments []model.Instrument, mock *collector.MockFetcher, reported bool) *harness {
	t.Helper()
	h := &harness{mock: mock, clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	h.engine = New(context.Background(), DefaultConfig(), instruments, mockRouting(mock, reported),
		state.NewTable(instruments), store, nil)
	h.engine.now = func() time.Time { return h.clock }
	return h
}

func newHarness(t *testing.T, instruments []model.Instrument, mock *collector.MockFetcher) *harness {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return newHarnessWith(t, store, instruments, mock, false)
}

func crypto(sym, id string) model.Instrument {
	return model.Instrument{Symbol: sym, ProviderID: id, Class: model.ClassCrypto, Enabled: true, TimeMultiplier: 1}
}

func equity(sym string) model.Instrument {
	return model.Instrument{Symbol: sym, ProviderID: sym, Class: model.ClassEquity, Enabled: true, TimeMultiplier: 1}
}

func disabled(inst model.Instrument) model.Instrument {
	inst.Enabled = false
	return inst
}

func TestRunBatch_MatchesQuotesByID(t *testing.T) {
	mock := &collector.MockFetcher{Quotes: map[string]model.Quote{
		"alpha":   {Price: 10, Change24h: 1},
		"charlie": {Price: 30, Change24h: -3},
	}}
	h := newHarness(t, []model.Instrument{
		crypto("A", "alpha"), crypto("B", "bravo"), crypto("C", "charlie"), equity("SPY"),
	}, mock)

	assert.Equal(t, 2, h.engine.runBatch())
	assert.Equal(t, []string{"batch:alpha,bravo,charlie"}, mock.CallLog())

	a, _ := h.engine.Table.Snapshot(0)
	assert.True(t, a.PriceValid)
	assert.Equal(t, 10.0, a.Price)
	assert.Equal(t, 1.0, a.Change24h)
	assert.Equal(t, h.clock, a.LastPriceUpdate)

	b, _ := h.engine.Table.Snapshot(1)
	assert.False(t, b.PriceValid)

	c, _ := h.engine.Table.Snapshot(2)
	assert.Equal(t, 30.0, c.Price)
	assert.Equal(t, -3.0, c.Change24h)

	spy, _ := h.engine.Table.Snapshot(3)
	assert.False(t, spy.PriceValid)
}

func TestRunBatch_FailureKeepsPreviousValues(t *testing.T) {
	mock := &collector.MockFetcher{Quotes: map[string]model.Quote{"alpha": {Price: 10}}}
	h := newHarness(t, []model.Instrument{crypto("A", "alpha")}, mock)
	require.Equal(t, 1, h.engine.runBatch())

	mock.Err = errors.New("connection refused")
	assert.Equal(t, 0, h.engine.runBatch())

	a, _ := h.engine.Table.Snapshot(0)
	assert.True(t, a.PriceValid)
	assert.Equal(t, 10.0, a.Price)
}

func TestRunSingle_RoundRobinSkipsCryptoAndDisabled(t *testing.T) {
	mock := &collector.MockFetcher{Quotes: map[string]model.Quote{
		"SPY": {Price: 500},
		"QQQ": {Price: 400},
	}}
	forex := model.Instrument{Symbol: "QQQ", ProviderID: "QQQ", Class: model.ClassForex, Enabled: true}
	h := newHarness(t, []model.Instrument{
		crypto("BTC", "bitcoin"), equity("SPY"), disabled(equity("DIA")), forex,
	}, mock)

	var visited []int
	for i := 0; i < 4; i++ {
		visited = append(visited, h.engine.runSingle())
	}
	assert.Equal(t, []int{1, 3, 1, 3}, visited)

	spy, _ := h.engine.Table.Snapshot(1)
	assert.Equal(t, 500.0, spy.Price)
	dia, _ := h.engine.Table.Snapshot(2)
	assert.False(t, dia.PriceValid)
}

func TestRunSingle_FailureStillAdvances(t *testing.T) {
	mock := &collector.MockFetcher{Err: errors.New("rate limited")}
	h := newHarness(t, []model.Instrument{equity("SPY"), equity("QQQ")}, mock)

	assert.Equal(t, 0, h.engine.runSingle())
	assert.Equal(t, 1, h.engine.runSingle())
	assert.Equal(t, 0, h.engine.runSingle())
}

func TestRunSingle_NothingEligible(t *testing.T) {
	mock := &collector.MockFetcher{}
	h := newHarness(t, []model.Instrument{crypto("BTC", "bitcoin"), disabled(equity("SPY"))}, mock)

	assert.Equal(t, -1, h.engine.runSingle())
	assert.Empty(t, mock.CallLog())
}

func TestRunSeries_VisitsEveryEnabledPairOnce(t *testing.T) {
	mock := &collector.MockFetcher{}
	h := newHarness(t, []model.Instrument{
		equity("A"), equity("B"), disabled(equity("C")), equity("D"),
	}, mock)
	h.engine.seriesCursor = seriesCursor{inst: 1, tf: 2}

	type pair struct {
		inst int
		tf   model.Timeframe
	}
	seen := map[pair]int{}
	for i := 0; i < 3*model.TimeframeCount; i++ {
		idx, tf := h.engine.runSeries()
		require.NotEqual(t, 2, idx, "disabled instrument visited")
		seen[pair{idx, tf}]++
	}

	assert.Len(t, seen, 3*model.TimeframeCount)
	for p, n := range seen {
		assert.Equal(t, 1, n, "pair %+v", p)
	}
	// The first visit continues the interrupted instrument.
	assert.Equal(t, "series:B/30D", mock.CallLog()[0])
}

func TestRunSeries_NothingEnabled(t *testing.T) {
	mock := &collector.MockFetcher{}
	h := newHarness(t, []model.Instrument{disabled(equity("A"))}, mock)

	idx, _ := h.engine.runSeries()
	assert.Equal(t, -1, idx)
	assert.Empty(t, mock.CallLog())
}

func TestRefreshSeries_DerivesChangeForEquity(t *testing.T) {
	mock := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"SPY": collector.GenerateSeries(100, 110, 24),
	}}
	h := newHarness(t, []model.Instrument{equity("SPY")}, mock)

	h.engine.refreshSeries(0, model.Timeframe24h)

	st, _ := h.engine.Table.Snapshot(0)
	require.True(t, st.Series[model.Timeframe24h].Valid)
	assert.Equal(t, uint8(0), st.Series[model.Timeframe24h].Samples[0])
	assert.Equal(t, uint8(255), st.Series[model.Timeframe24h].Samples[model.SeriesPoints-1])
	assert.InDelta(t, 10.0, st.Changes[model.Timeframe24h], 0.01)
	assert.InDelta(t, 10.0, st.Change24h, 0.01)

	cached, ok := h.engine.Cache.Load(model.Instrument{ProviderID: "SPY", Class: model.ClassEquity}.Key(), model.Timeframe24h)
	require.True(t, ok)
	assert.Equal(t, st.Series[model.Timeframe24h], cached)
}

func TestRefreshSeries_ReportedChangesAreKept(t *testing.T) {
	mock := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"bitcoin": collector.GenerateSeries(100, 200, 30),
	}}
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	h := newHarnessWith(t, store, []model.Instrument{crypto("BTC", "bitcoin")}, mock, true)

	h.engine.Table.ApplyQuote(0, model.Quote{
		Price: 200, Change24h: 1, Changes: [model.TimeframeCount]float64{1, 2, 3, 4}, HasChanges: true,
	}, h.clock)
	h.engine.refreshSeries(0, model.Timeframe7d)

	st, _ := h.engine.Table.Snapshot(0)
	assert.True(t, st.Series[model.Timeframe7d].Valid)
	assert.Equal(t, 2.0, st.Changes[model.Timeframe7d])
}

func TestRefreshSeries_CryptoKeepsQuoted24h(t *testing.T) {
	mock := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"bitcoin": collector.GenerateSeries(100, 150, 24),
	}}
	h := newHarness(t, []model.Instrument{crypto("BTC", "bitcoin")}, mock)

	h.engine.Table.ApplyQuote(0, model.Quote{Price: 150, Change24h: 5}, h.clock)
	h.engine.refreshSeries(0, model.Timeframe24h)

	st, _ := h.engine.Table.Snapshot(0)
	assert.InDelta(t, 50.0, st.Changes[model.Timeframe24h], 0.01)
	assert.Equal(t, 5.0, st.Change24h)
}

func TestRefreshSeries_InsufficientDataWritesNothing(t *testing.T) {
	mock := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"SPY": collector.GenerateSeries(100, 100, 1),
	}}
	h := newHarness(t, []model.Instrument{equity("SPY")}, mock)

	h.engine.refreshSeries(0, model.Timeframe30d)

	st, _ := h.engine.Table.Snapshot(0)
	assert.False(t, st.Series[model.Timeframe30d].Valid)
	assert.Zero(t, st.Changes[model.Timeframe30d])
	_, ok := h.engine.Cache.Load(equity("SPY").Key(), model.Timeframe30d)
	assert.False(t, ok)
}

func TestRefreshSeries_ZeroStartKeepsExistingChange(t *testing.T) {
	mock := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"SPY": collector.GenerateSeries(0, 50, 10),
	}}
	h := newHarness(t, []model.Instrument{equity("SPY")}, mock)
	h.engine.Table.Update(0, func(st *model.InstrumentState) { st.Changes[model.Timeframe7d] = 4.2 })

	h.engine.refreshSeries(0, model.Timeframe7d)

	st, _ := h.engine.Table.Snapshot(0)
	assert.True(t, st.Series[model.Timeframe7d].Valid)
	assert.Equal(t, 4.2, st.Changes[model.Timeframe7d])
}

func TestTick_ForceRefreshRunsEveryCadence(t *testing.T) {
	mock := &collector.MockFetcher{Quotes: map[string]model.Quote{
		"bitcoin": {Price: 1},
		"SPY":     {Price: 2},
	}}
	h := newHarness(t, []model.Instrument{crypto("BTC", "bitcoin"), equity("SPY")}, mock)

	h.engine.Tick()
	require.Len(t, mock.CallLog(), 3)

	h.advance(time.Second)
	h.engine.Tick()
	assert.Len(t, mock.CallLog(), 3)

	h.engine.ForceRefresh()
	h.advance(time.Second)
	h.engine.Tick()
	calls := mock.CallLog()
	require.Len(t, calls, 6)
	assert.Equal(t, "batch:bitcoin", calls[3])
	assert.Equal(t, "single:SPY", calls[4])
	assert.Contains(t, calls[5], "series:")
}

func TestTick_CadencePeriods(t *testing.T) {
	mock := &collector.MockFetcher{Quotes: map[string]model.Quote{"SPY": {Price: 2}}}
	h := newHarness(t, []model.Instrument{equity("SPY")}, mock)

	h.engine.Tick()
	singles := func() int {
		n := 0
		for _, c := range mock.CallLog() {
			if c == "single:SPY" {
				n++
			}
		}
		return n
	}
	require.Equal(t, 1, singles())

	h.advance(7 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 1, singles())

	h.advance(time.Second)
	h.engine.Tick()
	assert.Equal(t, 2, singles())
}

func TestSeed_RestoresCachedSeries(t *testing.T) {
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	instruments := []model.Instrument{equity("SPY"), crypto("BTC", "bitcoin")}
	up, err := calculator.Resample(collector.GenerateSeries(100, 120, 24))
	require.NoError(t, err)
	require.NoError(t, store.Save(instruments[0].Key(), model.Timeframe24h, up))
	require.NoError(t, store.Save(instruments[1].Key(), model.Timeframe7d, up))

	h := newHarnessWith(t, store, instruments, &collector.MockFetcher{}, false)

	spy, _ := h.engine.Table.Snapshot(0)
	assert.True(t, spy.Series[model.Timeframe24h].Valid)
	assert.InDelta(t, 20.0, spy.Changes[model.Timeframe24h], 0.01)
	assert.InDelta(t, 20.0, spy.Change24h, 0.01)
	assert.False(t, spy.PriceValid)

	btc, _ := h.engine.Table.Snapshot(1)
	assert.True(t, btc.Series[model.Timeframe7d].Valid)
	assert.Zero(t, btc.Changes[model.Timeframe7d])
}

type historyRecorder struct {
	prices map[string]float64
	at     time.Time
}

func (r *historyRecorder) RecordQuote(_ *recorder.QuoteEvent) error   { return nil }
func (r *historyRecorder) RecordSeries(_ *recorder.SeriesEvent) error { return nil }
func (r *historyRecorder) Close() error                               { return nil }

func (r *historyRecorder) LatestPrice(symbol string) (float64, time.Time, error) {
	p, ok := r.prices[symbol]
	if !ok {
		return 0, time.Time{}, errors.New("no rows")
	}
	return p, r.at, nil
}

func TestSeed_RestoresRecordedPrices(t *testing.T) {
	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	instruments := []model.Instrument{equity("SPY"), equity("QQQ")}
	at := time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC)
	rec := &historyRecorder{prices: map[string]float64{"SPY": 512.5}, at: at}

	e := New(context.Background(), DefaultConfig(), instruments, mockRouting(&collector.MockFetcher{}, false),
		state.NewTable(instruments), store, rec)

	spy, _ := e.Table.Snapshot(0)
	assert.True(t, spy.PriceValid)
	assert.Equal(t, 512.5, spy.Price)
	assert.Equal(t, at, spy.LastPriceUpdate)

	qqq, _ := e.Table.Snapshot(1)
	assert.False(t, qqq.PriceValid)
}

func TestSeriesPeriod_WarmupUntilPopulated(t *testing.T) {
	h := newHarness(t, []model.Instrument{equity("SPY"), disabled(equity("QQQ"))}, &collector.MockFetcher{})
	assert.Equal(t, 15*time.Second, h.engine.seriesPeriod())

	h.engine.Table.Update(0, func(st *model.InstrumentState) {
		for tf := range st.Series {
			st.Series[tf] = model.Series{Count: model.SeriesPoints, Min: 1, Max: 2, Valid: true}
		}
	})
	assert.Equal(t, 10*time.Minute, h.engine.seriesPeriod())
}

func TestReconfigure_AppliesOnNextTick(t *testing.T) {
	first := &collector.MockFetcher{Label: "first"}
	h := newHarness(t, []model.Instrument{equity("SPY")}, first)
	h.engine.Tick()
	h.engine.seriesCursor = seriesCursor{inst: 0, tf: 3}

	second := &collector.MockFetcher{Label: "second", Quotes: map[string]model.Quote{"ethereum": {Price: 3000}}}
	h.engine.Reconfigure([]model.Instrument{crypto("ETH", "ethereum"), equity("DIA")}, mockRouting(second, false), DefaultConfig())
	assert.Equal(t, 1, h.engine.Table.Len())

	h.advance(time.Second)
	h.engine.Tick()

	require.Equal(t, 2, h.engine.Table.Len())
	eth, _ := h.engine.Table.Snapshot(0)
	assert.Equal(t, "ETH", eth.Symbol)
	assert.Equal(t, 3000.0, eth.Price)

	calls := second.CallLog()
	require.Len(t, calls, 3)
	assert.Equal(t, "batch:ethereum", calls[0])
	assert.Equal(t, "single:DIA", calls[1])
	assert.Equal(t, "series:ethereum/24H", calls[2])
}

func TestReconfigure_UpdatesPeriods(t *testing.T) {
	mock := &collector.MockFetcher{Quotes: map[string]model.Quote{"SPY": {Price: 2}}}
	h := newHarness(t, []model.Instrument{equity("SPY")}, mock)
	h.engine.Tick()

	periods := DefaultConfig()
	periods.Tick = 5 * time.Second
	periods.SingleInterval = 20 * time.Second
	h.engine.Reconfigure([]model.Instrument{equity("SPY")}, mockRouting(mock, false), periods)

	singles := func() int {
		n := 0
		for _, c := range mock.CallLog() {
			if c == "single:SPY" {
				n++
			}
		}
		return n
	}
	h.advance(time.Second)
	h.engine.Tick()
	require.Equal(t, 2, singles())

	h.advance(8 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 2, singles(), "old 8s period still in use")

	h.advance(12 * time.Second)
	h.engine.Tick()
	assert.Equal(t, 3, singles())
	assert.Equal(t, time.Second, h.engine.cfg.Tick)
}

func TestStatus(t *testing.T) {
	h := newHarness(t, []model.Instrument{equity("SPY")}, &collector.MockFetcher{})
	assert.Equal(t, "Crypto: never | Stock: never | Chart: never", h.engine.Status())

	h.engine.Tick()
	h.advance(5 * time.Second)
	assert.Equal(t, "Crypto: 5s ago | Stock: 5s ago | Chart: 5s ago", h.engine.Status())
}

func TestHandleCommand(t *testing.T) {
	mock := &collector.MockFetcher{Quotes: map[string]model.Quote{"SPY": {Price: 512.25}}}
	h := newHarness(t, []model.Instrument{equity("SPY")}, mock)
	h.engine.Tick()

	assert.Contains(t, h.engine.HandleCommand("/prices"), "SPY")
	assert.Contains(t, h.engine.HandleCommand("/status"), "Stock: 0s ago")
	assert.Contains(t, h.engine.HandleCommand("/unknown"), "/refresh")

	assert.Equal(t, "🔄 Refresh scheduled", h.engine.HandleCommand(" /refresh "))
	assert.True(t, h.engine.refresh.Load())
}
