package scheduler

import (
	"log"

	"TickerFeed/internal/calculator"
	"TickerFeed/internal/model"
	"TickerFeed/internal/recorder"
)

// runBatch fetches spot prices for every enabled crypto instrument in one
// call and returns how many were updated. Instruments the provider left out
// keep their previous values until the next run.
func (e *Engine) runBatch() int {
	var ids []string
	for _, inst := range e.instruments {
		if inst.Enabled && inst.Class == model.ClassCrypto {
			ids = append(ids, inst.ProviderID)
		}
	}
	if len(ids) == 0 || e.routing.Batch == nil {
		return 0
	}

	fetcher := e.routing.Batch
	log.Printf("[INFO] fetching %d crypto prices via %s", len(ids), fetcher.Name())
	quotes, err := fetcher.FetchBatchSpot(e.Ctx, ids)
	if err != nil {
		log.Printf("[WARN] batch spot failed: %v", err)
		return 0
	}

	now := e.now()
	updated := 0
	for i, inst := range e.instruments {
		if !inst.Enabled || inst.Class != model.ClassCrypto {
			continue
		}
		q, ok := quotes[inst.ProviderID]
		if !ok {
			continue
		}
		e.Table.ApplyQuote(i, q, now)
		updated++
		e.record(&recorder.QuoteEvent{
			Symbol: inst.Symbol, Provider: fetcher.Name(), Cadence: "batch",
			Price: q.Price, Change24h: q.Change24h, At: now,
		})
	}
	log.Printf("[INFO] updated %d/%d crypto prices", updated, len(ids))
	return updated
}

// runSingle fetches the spot price of the next enabled equity or forex
// instrument and returns its index, or -1 when there is none. The cursor
// moves past the instrument whether or not the fetch succeeds.
func (e *Engine) runSingle() int {
	n := len(e.instruments)
	if n == 0 || e.routing.Single == nil {
		return -1
	}
	idx := -1
	for k := 0; k < n; k++ {
		i := (e.singleCursor + k) % n
		if inst := e.instruments[i]; inst.Enabled && inst.Class != model.ClassCrypto {
			idx = i
			break
		}
	}
	if idx < 0 {
		return -1
	}
	e.singleCursor = (idx + 1) % n

	inst := e.instruments[idx]
	fetcher := e.routing.Single
	price, err := fetcher.FetchSingleSpot(e.Ctx, inst.ProviderID)
	if err != nil {
		log.Printf("[WARN] fetch %s failed: %v", inst.Symbol, err)
		return idx
	}
	now := e.now()
	e.Table.SetPrice(idx, price, now)
	e.record(&recorder.QuoteEvent{
		Symbol: inst.Symbol, Provider: fetcher.Name(), Cadence: "single", Price: price, At: now,
	})
	log.Printf("[INFO] updated %s: $%.2f", inst.Symbol, price)
	return idx
}

// runSeries refreshes one (instrument, timeframe) pair and advances the
// cursor: all timeframes of an instrument, then the next enabled instrument.
// It returns the pair visited, or -1 when nothing is enabled.
func (e *Engine) runSeries() (int, model.Timeframe) {
	n := len(e.instruments)
	if n == 0 {
		return -1, 0
	}
	if e.seriesCursor.inst >= n {
		e.seriesCursor = seriesCursor{}
	}
	idx := -1
	for k := 0; k < n; k++ {
		i := (e.seriesCursor.inst + k) % n
		if e.instruments[i].Enabled {
			idx = i
			if k > 0 {
				e.seriesCursor.tf = 0
			}
			break
		}
	}
	if idx < 0 {
		return -1, 0
	}

	tf := model.Timeframes[e.seriesCursor.tf]
	e.seriesCursor.inst = idx
	e.seriesCursor.tf++
	if e.seriesCursor.tf >= model.TimeframeCount {
		e.seriesCursor.tf = 0
		e.seriesCursor.inst = (idx + 1) % n
	}

	e.refreshSeries(idx, tf)
	return idx, tf
}

// refreshSeries fetches, resamples, caches and publishes one series.
func (e *Engine) refreshSeries(idx int, tf model.Timeframe) {
	inst := e.instruments[idx]
	fetcher := e.routing.SeriesFor(inst.Class)
	if fetcher == nil {
		return
	}

	points, err := fetcher.FetchSeries(e.Ctx, inst.ProviderID, tf)
	if err != nil {
		log.Printf("[WARN] fetch %s %s series failed: %v", inst.Symbol, tf, err)
		return
	}
	series, err := calculator.Resample(points)
	if err != nil {
		log.Printf("[WARN] resample %s %s: %v", inst.Symbol, tf, err)
		return
	}
	if err := e.Cache.Save(inst.Key(), tf, series); err != nil {
		log.Printf("[WARN] cache %s %s: %v", inst.Symbol, tf, err)
	}

	var pct float64
	derived := false
	if e.routing.DerivesChange(inst.Class) {
		pct, derived = calculator.DeriveChange(series)
	}
	e.Table.Update(idx, func(st *model.InstrumentState) {
		st.Series[tf] = series
		if !derived {
			return
		}
		st.Changes[tf] = pct
		// Crypto 24h figures come from the batch quote.
		if tf == model.Timeframe24h && inst.Class != model.ClassCrypto {
			st.Change24h = pct
		}
	})

	e.record(&recorder.SeriesEvent{
		Symbol: inst.Symbol, Provider: fetcher.Name(), Timeframe: tf, RawPoints: len(points),
		PriceMin: series.Min, PriceMax: series.Max, Change: pct, Derived: derived, At: e.now(),
	})
	log.Printf("[INFO] updated %s %s series: %d points, range $%.2f - $%.2f",
		inst.Symbol, tf, len(points), series.Min, series.Max)
}

func (e *Engine) record(evt any) {
	var err error
	switch v := evt.(type) {
	case *recorder.QuoteEvent:
		err = e.Recorder.RecordQuote(v)
	case *recorder.SeriesEvent:
		err = e.Recorder.RecordSeries(v)
	}
	if err != nil {
		log.Printf("[ERROR] record history: %v", err)
	}
}
