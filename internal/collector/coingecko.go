package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"TickerFeed/internal/model"
)

// DefaultCoinGeckoURL is the public CoinGecko v3 API.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoFetcher implements Fetcher using the CoinGecko public API.
// It serves crypto instruments; ids are CoinGecko coin ids ("bitcoin").
type CoinGeckoFetcher struct {
	BaseURL string
	APIKey  string // optional demo key
	Client  *http.Client
}

// NewCoinGeckoFetcher creates a new CoinGecko fetcher with optional proxy support.
func NewCoinGeckoFetcher(baseURL, apiKey, proxyURL string) *CoinGeckoFetcher {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

func (f *CoinGeckoFetcher) query(q url.Values) url.Values {
	if f.APIKey != "" {
		q.Set("x_cg_demo_api_key", f.APIKey)
	}
	return q
}

// cgMarket is one entry of the /coins/markets response.
type cgMarket struct {
	ID                       string   `json:"id"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

func (f *CoinGeckoFetcher) FetchBatchSpot(ctx context.Context, ids []string) (map[string]model.Quote, error) {
	if len(ids) == 0 {
		return map[string]model.Quote{}, nil
	}
	q := f.query(url.Values{})
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	q.Set("price_change_percentage", "24h")
	q.Set("sparkline", "false")

	var markets []cgMarket
	err := getJSON(ctx, f.Client, request{
		provider: f.Name(),
		op:       "batch spot",
		endpoint: f.BaseURL + "/coins/markets",
		query:    q,
		timeout:  SpotTimeout,
	}, &markets)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]model.Quote, len(markets))
	for _, m := range markets {
		if m.ID == "" || m.CurrentPrice == nil {
			continue
		}
		quote := model.Quote{Price: *m.CurrentPrice}
		if m.PriceChangePercentage24h != nil {
			quote.Change24h = *m.PriceChangePercentage24h
		}
		quotes[m.ID] = quote
	}
	return quotes, nil
}

func (f *CoinGeckoFetcher) FetchSingleSpot(ctx context.Context, id string) (float64, error) {
	q := f.query(url.Values{})
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")

	var result map[string]map[string]float64
	err := getJSON(ctx, f.Client, request{
		provider: f.Name(),
		op:       "single spot",
		endpoint: f.BaseURL + "/simple/price",
		query:    q,
		timeout:  SpotTimeout,
	}, &result)
	if err != nil {
		return 0, err
	}
	price, ok := result[id]["usd"]
	if !ok {
		return 0, failure(f.Name(), "single spot", model.ErrData, errors.New("no usd price for "+id))
	}
	return price, nil
}

func (f *CoinGeckoFetcher) FetchSeries(ctx context.Context, id string, tf model.Timeframe) ([]model.PricePoint, error) {
	q := f.query(url.Values{})
	q.Set("vs_currency", "usd")
	q.Set("days", strconv.Itoa(tf.Window().Days))

	var chart struct {
		Prices [][]*float64 `json:"prices"`
	}
	err := getJSON(ctx, f.Client, request{
		provider: f.Name(),
		op:       "series",
		endpoint: f.BaseURL + "/coins/" + url.PathEscape(id) + "/market_chart",
		query:    q,
		timeout:  SeriesTimeout,
	}, &chart)
	if err != nil {
		return nil, err
	}
	if chart.Prices == nil {
		return nil, failure(f.Name(), "series", model.ErrData, errors.New("missing prices field"))
	}

	points := make([]model.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		// Gaps in the chart come back as null prices.
		if len(p) < 2 || p[0] == nil || p[1] == nil {
			continue
		}
		points = append(points, model.PricePoint{Time: time.UnixMilli(int64(*p[0])), Price: *p[1]})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
