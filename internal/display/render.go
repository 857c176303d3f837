package display

import (
	"fmt"
	"io"
	"strings"

	"TickerFeed/internal/model"
	"TickerFeed/internal/notifier"
)

var bars = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the series as width block characters. Each character
// shows the sample nearest its position.
func Sparkline(s model.Series, width int) string {
	if !s.Consistent() || width <= 0 {
		return strings.Repeat("·", max(width, 0))
	}
	count := int(s.Count)
	var b strings.Builder
	for i := 0; i < width; i++ {
		idx := 0
		if width > 1 {
			idx = i * (count - 1) / (width - 1)
		}
		b.WriteRune(bars[int(s.Samples[idx])*len(bars)/256])
	}
	return b.String()
}

// TextRenderer writes one line per screen.
type TextRenderer struct {
	Out   io.Writer
	Width int
}

// Line formats a screen without writing it.
func (t *TextRenderer) Line(r model.Reading) string {
	price := "--"
	if r.State.PriceValid {
		price = notifier.FormatPrice(r.State.Price)
	}
	series := r.Series()
	spark := Sparkline(series, t.Width)
	if series.Consistent() {
		spark = fmt.Sprintf("%s %s-%s", spark, notifier.FormatPrice(series.Min), notifier.FormatPrice(series.Max))
	}
	return fmt.Sprintf("%-6s %-3s %10s %+7.2f%% %s", r.State.Symbol, r.Timeframe, price, r.Change(), spark)
}

func (t *TextRenderer) Render(r model.Reading) {
	fmt.Fprintln(t.Out, t.Line(r))
}
