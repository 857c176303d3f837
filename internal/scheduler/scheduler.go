package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"TickerFeed/internal/cache"
	"TickerFeed/internal/collector"
	"TickerFeed/internal/model"
	"TickerFeed/internal/notifier"
	"TickerFeed/internal/recorder"
	"TickerFeed/internal/state"

	"github.com/robfig/cron/v3"
)

// Config holds the engine's polling periods.
type Config struct {
	Tick           time.Duration // how often cadences are re-evaluated
	BatchInterval  time.Duration // crypto batch spot
	SingleInterval time.Duration // round-robin equity/forex spot
	SeriesInterval time.Duration // round-robin history once everything is populated
	SeriesWarmup   time.Duration // round-robin history while anything is missing
}

// DefaultConfig returns the standard periods.
func DefaultConfig() Config {
	return Config{
		Tick:           time.Second,
		BatchInterval:  60 * time.Second,
		SingleInterval: 8 * time.Second,
		SeriesInterval: 10 * time.Minute,
		SeriesWarmup:   15 * time.Second,
	}
}

// reconfig is a pending replacement of the instrument list, providers and periods.
type reconfig struct {
	instruments []model.Instrument
	routing     collector.Routing
	cfg         Config
}

// Engine owns the three polling cadences and is the only writer of the
// state table. All fetching happens inside Tick, which cron never runs
// concurrently with itself.
type Engine struct {
	Cron     *cron.Cron
	Table    *state.Table
	Cache    *cache.Store
	Recorder recorder.Recorder
	Ctx      context.Context

	cfg         Config
	now         func() time.Time
	instruments []model.Instrument
	routing     collector.Routing

	batch  cadence
	single cadence
	series cadence

	singleCursor int
	seriesCursor seriesCursor

	pending atomic.Pointer[reconfig]
	refresh atomic.Bool
}

// New creates an Engine and seeds the table from the cache so readers have
// data before the first network call completes.
func New(ctx context.Context, cfg Config, instruments []model.Instrument, routing collector.Routing,
	table *state.Table, store *cache.Store, rec recorder.Recorder) *Engine {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	e := &Engine{
		Cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(log.Default())),
		)),
		Table:       table,
		Cache:       store,
		Recorder:    rec,
		Ctx:         ctx,
		cfg:         cfg,
		now:         time.Now,
		instruments: append([]model.Instrument(nil), instruments...),
		routing:     routing,
		batch:       cadence{label: "Crypto"},
		single:      cadence{label: "Stock"},
		series:      cadence{label: "Chart"},
	}
	e.seed()
	return e
}

// Start registers the tick job and starts cron.
func (e *Engine) Start() error {
	if _, err := e.Cron.AddFunc(fmt.Sprintf("@every %s", e.cfg.Tick), e.Tick); err != nil {
		return fmt.Errorf("register tick: %w", err)
	}
	e.Cron.Start()
	log.Printf("[INFO] scheduler started (tick %s)", e.cfg.Tick)
	return nil
}

// Stop stops cron and waits for a running tick to return.
func (e *Engine) Stop() {
	<-e.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// ForceRefresh makes every cadence run on the next tick.
func (e *Engine) ForceRefresh() {
	e.refresh.Store(true)
	log.Println("[INFO] forced refresh scheduled")
}

// Reconfigure replaces the instruments, providers and cadence periods. It
// takes effect at the start of the next tick, never in the middle of one.
// The tick period itself is fixed once the engine has started.
func (e *Engine) Reconfigure(instruments []model.Instrument, routing collector.Routing, cfg Config) {
	e.pending.Store(&reconfig{
		instruments: append([]model.Instrument(nil), instruments...),
		routing:     routing,
		cfg:         cfg,
	})
}

// Tick runs every cadence that is due.
func (e *Engine) Tick() {
	if rc := e.pending.Swap(nil); rc != nil {
		log.Printf("[INFO] config changed, reinitializing with %d instruments", len(rc.instruments))
		e.instruments = rc.instruments
		e.routing = rc.routing
		if rc.cfg.Tick != e.cfg.Tick {
			log.Printf("[WARN] tick period change to %s needs a restart", rc.cfg.Tick)
		}
		rc.cfg.Tick = e.cfg.Tick
		e.cfg = rc.cfg
		e.singleCursor = 0
		e.seriesCursor = seriesCursor{}
		e.seed()
		e.resetCadences()
	}
	if e.refresh.Swap(false) {
		e.resetCadences()
	}

	now := e.now()
	if e.batch.due(now, e.cfg.BatchInterval) {
		e.runBatch()
		e.batch.mark(now)
	}
	if e.single.due(now, e.cfg.SingleInterval) {
		e.runSingle()
		e.single.mark(now)
	}
	if e.series.due(now, e.seriesPeriod()) {
		e.runSeries()
		e.series.mark(now)
	}
}

func (e *Engine) resetCadences() {
	e.batch.reset()
	e.single.reset()
	e.series.reset()
}

// seriesPeriod accelerates the history rotation until every enabled
// instrument has a valid series for every timeframe.
func (e *Engine) seriesPeriod() time.Duration {
	for i, inst := range e.instruments {
		if !inst.Enabled {
			continue
		}
		for _, tf := range model.Timeframes {
			if !e.Table.HasSeries(i, tf) {
				return e.cfg.SeriesWarmup
			}
		}
	}
	return e.cfg.SeriesInterval
}

// Status reports how long ago each cadence last ran.
func (e *Engine) Status() string {
	now := e.now()
	return strings.Join([]string{e.batch.ago(now), e.single.ago(now), e.series.ago(now)}, " | ")
}

// HandleCommand processes a user command and returns a reply.
func (e *Engine) HandleCommand(command string) string {
	switch strings.TrimSpace(command) {
	case "/prices", "/start":
		return notifier.FormatBoard(e.Table.All())
	case "/status":
		return notifier.FormatStatus(e.Status(), e.Table.All())
	case "/refresh":
		e.ForceRefresh()
		return "🔄 Refresh scheduled"
	default:
		return "Available commands:\n• /prices\n• /status\n• /refresh"
	}
}
