package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"
)

// cadence tracks when one polling schedule last ran. Zero means never,
// which makes the cadence due on the next tick.
type cadence struct {
	label string
	last  atomic.Int64 // unix nanoseconds
}

func (c *cadence) due(now time.Time, period time.Duration) bool {
	last := c.last.Load()
	return last == 0 || now.Sub(time.Unix(0, last)) >= period
}

func (c *cadence) mark(now time.Time) { c.last.Store(now.UnixNano()) }

func (c *cadence) reset() { c.last.Store(0) }

// ago renders the time since the last run for status output.
func (c *cadence) ago(now time.Time) string {
	last := c.last.Load()
	if last == 0 {
		return c.label + ": never"
	}
	return fmt.Sprintf("%s: %ds ago", c.label, int(now.Sub(time.Unix(0, last)).Seconds()))
}

// seriesCursor is the compound (instrument, timeframe) rotation position.
type seriesCursor struct {
	inst int
	tf   int
}
