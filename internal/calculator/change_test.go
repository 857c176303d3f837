package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TickerFeed/internal/model"
)

func series(low, high float64, first, last uint8) model.Series {
	s := model.Series{Count: model.SeriesPoints, Min: low, Max: high, Valid: true}
	s.Samples[0] = first
	s.Samples[model.SeriesPoints-1] = last
	return s
}

func TestDeriveChange(t *testing.T) {
	tests := []struct {
		name   string
		series model.Series
		want   float64
		ok     bool
	}{
		{name: "doubling", series: series(100, 200, 0, 255), want: 100, ok: true},
		{name: "halving", series: series(100, 200, 255, 0), want: -50, ok: true},
		{name: "start at zero", series: series(0, 50, 0, 255), ok: false},
		{name: "flat range", series: series(100, 100.00001, 0, 255), ok: false},
		{name: "invalid", series: model.Series{Min: 1, Max: 2}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DeriveChange(tt.series)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestDeriveChange_FromResample(t *testing.T) {
	s, err := Resample(makePoints(50, 60, 70, 80, 75))
	assert.NoError(t, err)
	pct, ok := DeriveChange(s)
	assert.True(t, ok)
	// first sample is exactly the low (50); last is 75 quantized.
	assert.InDelta(t, 50.0, pct, 0.5)
}
