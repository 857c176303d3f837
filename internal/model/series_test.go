package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_Price(t *testing.T) {
	s := Series{Count: SeriesPoints, Min: 100, Max: 200, Valid: true}
	s.Samples[0] = 0
	s.Samples[1] = 255
	s.Samples[2] = 51
	assert.Equal(t, 100.0, s.Price(0))
	assert.Equal(t, 200.0, s.Price(1))
	assert.InDelta(t, 120.0, s.Price(2), 1e-9)
}

func TestSeries_BinaryLayout(t *testing.T) {
	s := Series{Count: SeriesPoints, Min: 0.123456789, Max: 98765.4321, Valid: true}
	for i := range s.Samples {
		s.Samples[i] = uint8(i * 4)
	}
	blob, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, blob, SeriesBlobSize)

	var got Series
	require.NoError(t, got.UnmarshalBinary(blob))
	assert.Equal(t, s, got)

	err = got.UnmarshalBinary(blob[:SeriesBlobSize-1])
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestSeries_Consistent(t *testing.T) {
	assert.False(t, (&Series{}).Consistent())
	assert.False(t, (&Series{Valid: true, Count: 1}).Consistent())
	assert.False(t, (&Series{Valid: true, Count: 2, Min: 3, Max: 1}).Consistent())
	assert.True(t, (&Series{Valid: true, Count: 2, Min: 1, Max: 1}).Consistent())
}

func TestParseClass(t *testing.T) {
	for in, want := range map[string]Class{"crypto": ClassCrypto, "Stock": ClassEquity, "equity": ClassEquity, "forex": ClassForex} {
		got, err := ParseClass(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseClass("bond")
	assert.Error(t, err)
}

func TestReading_Change(t *testing.T) {
	st := InstrumentState{Change24h: 2.5}
	st.Changes[Timeframe7d] = -4
	assert.Equal(t, 2.5, Reading{State: st, Timeframe: Timeframe24h}.Change())
	assert.Equal(t, -4.0, Reading{State: st, Timeframe: Timeframe7d}.Change())
	assert.Equal(t, 2.5, Reading{State: st, Timeframe: Timeframe90d}.Change())
	assert.Equal(t, 0.0, Reading{Timeframe: Timeframe30d}.Change())
}
