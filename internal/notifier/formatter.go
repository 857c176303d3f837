package notifier

import (
	"fmt"
	"strings"
	"time"

	"TickerFeed/internal/model"
)

// FormatBoard formats the latest price and change of every instrument.
func FormatBoard(states []model.InstrumentState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>TickerFeed</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	if len(states) == 0 {
		b.WriteString("No instruments configured.")
		return b.String()
	}
	for _, st := range states {
		if !st.PriceValid {
			b.WriteString(fmt.Sprintf("%s: --\n", st.Symbol))
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %s (%+.2f%%)\n", st.Symbol, FormatPrice(st.Price), st.Change24h))
	}
	return b.String()
}

// FormatStatus formats cadence ages and per-instrument series coverage.
func FormatStatus(status string, states []model.InstrumentState) string {
	var b strings.Builder
	b.WriteString("📡 <b>Data status</b>\n\n")
	b.WriteString(status)
	b.WriteString("\n\n")
	for _, st := range states {
		var frames []string
		for _, tf := range model.Timeframes {
			mark := "✗"
			if st.Series[tf].Valid {
				mark = "✓"
			}
			frames = append(frames, tf.String()+mark)
		}
		updated := "never"
		if !st.LastPriceUpdate.IsZero() {
			updated = st.LastPriceUpdate.Format("15:04:05")
		}
		b.WriteString(fmt.Sprintf("%s [%s] price %s\n", st.Symbol, strings.Join(frames, " "), updated))
	}
	return b.String()
}

// FormatPrice picks a precision that suits the magnitude of the price.
func FormatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("$%.0f", p)
	case p >= 1:
		return fmt.Sprintf("$%.2f", p)
	default:
		return fmt.Sprintf("$%.4f", p)
	}
}
