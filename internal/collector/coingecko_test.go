package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerFeed/internal/model"
)

func TestCoinGecko_FetchBatchSpot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum,solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "demo", r.URL.Query().Get("x_cg_demo_api_key"))
		w.Header().Set("Content-Type", "application/json")
		// solana is not returned; ethereum has no price.
		w.Write([]byte(`[
			{"id":"bitcoin","current_price":97234.5,"price_change_percentage_24h":2.4},
			{"id":"ethereum","current_price":null,"price_change_percentage_24h":1.0}
		]`))
	}))
	defer server.Close()

	f := NewCoinGeckoFetcher(server.URL, "demo", "")
	quotes, err := f.FetchBatchSpot(context.Background(), []string{"bitcoin", "ethereum", "solana"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 97234.5, quotes["bitcoin"].Price)
	assert.Equal(t, 2.4, quotes["bitcoin"].Change24h)
	assert.False(t, quotes["bitcoin"].HasChanges)
}

func TestCoinGecko_FetchSingleSpot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		w.Write([]byte(`{"bitcoin":{"usd":64000.25}}`))
	}))
	defer server.Close()

	f := NewCoinGeckoFetcher(server.URL, "", "")
	price, err := f.FetchSingleSpot(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 64000.25, price)

	_, err = f.FetchSingleSpot(context.Background(), "dogecoin")
	assert.True(t, errors.Is(err, model.ErrData))
}

func TestCoinGecko_FetchSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		w.Write([]byte(`{"prices":[[1700000200000,102.0],[1700000000000,100.0],[1700000100000,101.0]]}`))
	}))
	defer server.Close()

	f := NewCoinGeckoFetcher(server.URL, "", "")
	points, err := f.FetchSeries(context.Background(), "bitcoin", model.Timeframe7d)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{100, 101, 102}, []float64{points[0].Price, points[1].Price, points[2].Price})
}

func TestCoinGecko_FetchSeriesSkipsNullPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[[1000,100.0],[2000,null],[null,105.0],[3000,110.0]]}`))
	}))
	defer server.Close()

	f := NewCoinGeckoFetcher(server.URL, "", "")
	points, err := f.FetchSeries(context.Background(), "bitcoin", model.Timeframe24h)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 100.0, points[0].Price)
	assert.Equal(t, 110.0, points[1].Price)
	assert.Equal(t, int64(3000), points[1].Time.UnixMilli())
}

func TestCoinGecko_Failures(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		kind error
	}{
		{name: "rate limited", code: http.StatusTooManyRequests, body: `{"status":{"error_code":429}}`, kind: model.ErrProtocol},
		{name: "malformed", code: http.StatusOK, body: `{"prices":[`, kind: model.ErrPayload},
		{name: "missing field", code: http.StatusOK, body: `{"market_caps":[]}`, kind: model.ErrData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := NewCoinGeckoFetcher(server.URL, "", "")
			_, err := f.FetchSeries(context.Background(), "bitcoin", model.Timeframe24h)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "coingecko", fe.Provider)
		})
	}
}

func TestCoinGecko_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f := NewCoinGeckoFetcher(url, "", "")
	_, err := f.FetchBatchSpot(context.Background(), []string{"bitcoin"})
	assert.True(t, errors.Is(err, model.ErrNetwork), "got %v", err)
}
