package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"TickerFeed/internal/model"
)

// DefaultTwelveDataURL is the TwelveData REST API.
const DefaultTwelveDataURL = "https://api.twelvedata.com"

// TwelveDataFetcher implements Fetcher using the TwelveData REST API.
// It serves equities and forex; ids are TwelveData symbols ("SPY", "EUR/USD").
type TwelveDataFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewTwelveDataFetcher creates a new TwelveData fetcher with optional proxy support.
func NewTwelveDataFetcher(baseURL, apiKey, proxyURL string) *TwelveDataFetcher {
	if baseURL == "" {
		baseURL = DefaultTwelveDataURL
	}
	return &TwelveDataFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *TwelveDataFetcher) Name() string { return "twelvedata" }

// tdError is the body TwelveData returns, often with HTTP 200, on failure.
type tdError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// get fetches a body and rejects TwelveData's in-band error documents.
func (f *TwelveDataFetcher) get(ctx context.Context, op, path string, q url.Values, timeout time.Duration) ([]byte, error) {
	q.Set("apikey", f.APIKey)
	body, err := getBody(ctx, f.Client, request{
		provider: f.Name(),
		op:       op,
		endpoint: f.BaseURL + path,
		query:    q,
		timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}
	var status tdError
	if json.Unmarshal(body, &status) == nil && status.Status == "error" {
		return nil, &FetchError{
			Provider:   f.Name(),
			Op:         op,
			Kind:       model.ErrProtocol,
			StatusCode: status.Code,
			Err:        errors.New(status.Message),
		}
	}
	return body, nil
}

func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

type tdPrice struct {
	Price *string `json:"price"`
}

func (f *TwelveDataFetcher) FetchBatchSpot(ctx context.Context, ids []string) (map[string]model.Quote, error) {
	quotes := make(map[string]model.Quote, len(ids))
	if len(ids) == 0 {
		return quotes, nil
	}
	if len(ids) == 1 {
		price, err := f.FetchSingleSpot(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		quotes[ids[0]] = model.Quote{Price: price}
		return quotes, nil
	}

	q := url.Values{}
	q.Set("symbol", strings.Join(ids, ","))
	body, err := f.get(ctx, "batch spot", "/price", q, SpotTimeout)
	if err != nil {
		return nil, err
	}
	var bySymbol map[string]json.RawMessage
	if err := json.Unmarshal(body, &bySymbol); err != nil {
		return nil, failure(f.Name(), "batch spot", model.ErrPayload, err)
	}
	for symbol, raw := range bySymbol {
		var p tdPrice
		if json.Unmarshal(raw, &p) != nil || p.Price == nil {
			continue
		}
		price, err := parsePrice(*p.Price)
		if err != nil {
			continue
		}
		quotes[symbol] = model.Quote{Price: price}
	}
	return quotes, nil
}

func (f *TwelveDataFetcher) FetchSingleSpot(ctx context.Context, id string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", id)
	body, err := f.get(ctx, "single spot", "/price", q, SpotTimeout)
	if err != nil {
		return 0, err
	}
	var p tdPrice
	if err := json.Unmarshal(body, &p); err != nil {
		return 0, failure(f.Name(), "single spot", model.ErrPayload, err)
	}
	if p.Price == nil {
		return 0, failure(f.Name(), "single spot", model.ErrData, fmt.Errorf("no price field for %s", id))
	}
	price, err := parsePrice(*p.Price)
	if err != nil {
		return 0, failure(f.Name(), "single spot", model.ErrPayload, err)
	}
	return price, nil
}

// tdTimeLayouts covers intraday and daily datetime values.
var tdTimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

func parseDatetime(s string) (time.Time, error) {
	for _, layout := range tdTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

func (f *TwelveDataFetcher) FetchSeries(ctx context.Context, id string, tf model.Timeframe) ([]model.PricePoint, error) {
	w := tf.Window()
	q := url.Values{}
	q.Set("symbol", id)
	q.Set("interval", w.Interval)
	q.Set("outputsize", strconv.Itoa(w.OutputSize))
	body, err := f.get(ctx, "series", "/time_series", q, SeriesTimeout)
	if err != nil {
		return nil, err
	}

	var ts struct {
		Values []struct {
			Datetime string `json:"datetime"`
			Close    string `json:"close"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, failure(f.Name(), "series", model.ErrPayload, err)
	}
	if ts.Values == nil {
		return nil, failure(f.Name(), "series", model.ErrData, errors.New("no values field"))
	}

	points := make([]model.PricePoint, 0, len(ts.Values))
	for _, v := range ts.Values {
		price, err := parsePrice(v.Close)
		if err != nil {
			continue
		}
		at, err := parseDatetime(v.Datetime)
		if err != nil {
			continue
		}
		points = append(points, model.PricePoint{Time: at, Price: price})
	}
	// Values arrive newest first.
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
