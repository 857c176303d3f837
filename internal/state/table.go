package state

import (
	"sync"
	"time"

	"TickerFeed/internal/model"
)

// Table holds one InstrumentState per configured instrument. The scheduler
// is its only writer; renderers read copies. The lock is held only for the
// duration of one record mutation or copy.
type Table struct {
	mu      sync.Mutex
	entries []model.InstrumentState
}

// NewTable creates a table with one empty record per instrument.
func NewTable(instruments []model.Instrument) *Table {
	t := &Table{}
	t.Reset(instruments)
	return t
}

// Reset replaces every record with an empty one for the new instrument list.
func (t *Table) Reset(instruments []model.Instrument) {
	entries := make([]model.InstrumentState, len(instruments))
	for i, inst := range instruments {
		entries[i] = model.InstrumentState{Symbol: inst.Symbol, Class: inst.Class}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = entries
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot returns a copy of record i.
func (t *Table) Snapshot(i int) (model.InstrumentState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.entries) {
		return model.InstrumentState{}, false
	}
	return t.entries[i], true
}

// Read returns a consistent copy of record i together with the requested timeframe.
func (t *Table) Read(i int, tf model.Timeframe) (model.Reading, bool) {
	st, ok := t.Snapshot(i)
	if !ok {
		return model.Reading{}, false
	}
	return model.Reading{State: st, Timeframe: tf}, true
}

// All returns copies of every record.
func (t *Table) All() []model.InstrumentState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.InstrumentState(nil), t.entries...)
}

// Update applies fn to record i under the lock. fn must not block.
func (t *Table) Update(i int, fn func(st *model.InstrumentState)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.entries) {
		return false
	}
	fn(&t.entries[i])
	return true
}

// ApplyQuote stores a batch quote. Provider-reported timeframe changes are
// copied only when the quote carries them.
func (t *Table) ApplyQuote(i int, q model.Quote, at time.Time) bool {
	return t.Update(i, func(st *model.InstrumentState) {
		st.Price = q.Price
		st.Change24h = q.Change24h
		if q.HasChanges {
			st.Changes = q.Changes
		}
		st.PriceValid = true
		st.LastPriceUpdate = at
	})
}

// SetPrice stores a spot price without touching change figures.
func (t *Table) SetPrice(i int, price float64, at time.Time) bool {
	return t.Update(i, func(st *model.InstrumentState) {
		st.Price = price
		st.PriceValid = true
		st.LastPriceUpdate = at
	})
}

// HasSeries reports whether record i holds a valid series for tf.
func (t *Table) HasSeries(i int, tf model.Timeframe) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.entries) {
		return false
	}
	return t.entries[i].Series[tf].Valid
}
