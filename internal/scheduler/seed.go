package scheduler

import (
	"log"

	"TickerFeed/internal/calculator"
	"TickerFeed/internal/model"
	"TickerFeed/internal/recorder"
)

// seed resets the table for the current instruments and fills it from the
// series cache, and from recorded prices when the recorder keeps them.
// Non-crypto instruments get their changes estimated from the cached series
// straight away; crypto changes arrive with the first batch quote.
func (e *Engine) seed() {
	e.Table.Reset(e.instruments)
	history, _ := e.Recorder.(recorder.PriceHistory)

	restored := 0
	for i, inst := range e.instruments {
		for _, tf := range model.Timeframes {
			series, ok := e.Cache.Load(inst.Key(), tf)
			if !ok {
				continue
			}
			restored++
			var pct float64
			derived := false
			if inst.Class != model.ClassCrypto {
				pct, derived = calculator.DeriveChange(series)
			}
			e.Table.Update(i, func(st *model.InstrumentState) {
				st.Series[tf] = series
				if derived {
					st.Changes[tf] = pct
					if tf == model.Timeframe24h {
						st.Change24h = pct
					}
				}
			})
		}

		if history == nil {
			continue
		}
		if price, at, err := history.LatestPrice(inst.Symbol); err == nil {
			e.Table.SetPrice(i, price, at)
		}
	}
	log.Printf("[INFO] restored %d cached series for %d instruments", restored, len(e.instruments))
}
