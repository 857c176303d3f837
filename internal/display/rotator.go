package display

import (
	"context"
	"log"
	"sync"
	"time"

	"TickerFeed/internal/model"
	"TickerFeed/internal/state"
)

// Renderer draws one screen.
type Renderer interface {
	Render(r model.Reading)
}

// Rotator cycles through every enabled instrument, showing each of its
// timeframes for baseTime scaled by the instrument's multiplier.
type Rotator struct {
	table    *state.Table
	renderer Renderer
	baseTime time.Duration

	mu          sync.Mutex
	instruments []model.Instrument
	inst        int
	tf          int
}

// NewRotator creates a rotator over the given instruments.
func NewRotator(table *state.Table, renderer Renderer, baseTime time.Duration, instruments []model.Instrument) *Rotator {
	r := &Rotator{table: table, renderer: renderer, baseTime: baseTime}
	r.SetInstruments(instruments)
	return r
}

// SetInstruments replaces the rotation and restarts it from the first instrument.
func (r *Rotator) SetInstruments(instruments []model.Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instruments = append([]model.Instrument(nil), instruments...)
	r.inst, r.tf = 0, 0
}

// Next returns the next screen and how long to show it. ok is false when
// no enabled instrument has a record in the table yet.
func (r *Rotator) Next() (reading model.Reading, hold time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.instruments)
	for k := 0; k < n; k++ {
		i := (r.inst + k) % n
		inst := r.instruments[i]
		if !inst.Enabled {
			continue
		}
		if k > 0 {
			r.tf = 0
		}
		tf := model.Timeframes[r.tf]
		r.inst = i
		r.tf++
		if r.tf >= model.TimeframeCount {
			r.inst, r.tf = (i+1)%n, 0
		}

		reading, found := r.table.Read(i, tf)
		// The table is rebuilt on the engine's next tick after a reload.
		if !found || reading.State.Symbol != inst.Symbol {
			return model.Reading{}, 0, false
		}
		return reading, time.Duration(float64(r.baseTime) * inst.TimeMultiplier), true
	}
	return model.Reading{}, 0, false
}

// Run renders screens until ctx is cancelled.
func (r *Rotator) Run(ctx context.Context) {
	log.Println("[INFO] display rotation started")
	for {
		reading, hold, ok := r.Next()
		if ok {
			r.renderer.Render(reading)
		} else {
			hold = r.baseTime
		}
		select {
		case <-ctx.Done():
			log.Println("[INFO] display rotation stopped")
			return
		case <-time.After(hold):
		}
	}
}
