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
	"sync"
	"time"

	"TickerFeed/internal/model"
)

// DefaultCoinMarketCapURL is the CoinMarketCap pro API.
const DefaultCoinMarketCapURL = "https://pro-api.coinmarketcap.com"

// CoinMarketCapFetcher implements Fetcher using the CoinMarketCap pro API.
// Ids are CoinMarketCap slugs ("bitcoin"). Unlike CoinGecko it reports
// percent changes for every timeframe directly.
type CoinMarketCapFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	mu    sync.Mutex
	slugs map[string]int // slug -> numeric id, learned from quote responses
}

// NewCoinMarketCapFetcher creates a new CoinMarketCap fetcher with optional proxy support.
func NewCoinMarketCapFetcher(baseURL, apiKey, proxyURL string) *CoinMarketCapFetcher {
	if baseURL == "" {
		baseURL = DefaultCoinMarketCapURL
	}
	return &CoinMarketCapFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		slugs:   make(map[string]int),
	}
}

func (f *CoinMarketCapFetcher) Name() string { return "coinmarketcap" }

type cmcStatus struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type cmcUSD struct {
	Price            *float64 `json:"price"`
	PercentChange24h float64  `json:"percent_change_24h"`
	PercentChange7d  float64  `json:"percent_change_7d"`
	PercentChange30d float64  `json:"percent_change_30d"`
	PercentChange90d float64  `json:"percent_change_90d"`
}

type cmcAsset struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Quote struct {
		USD *cmcUSD `json:"USD"`
	} `json:"quote"`
}

func (f *CoinMarketCapFetcher) header() http.Header {
	h := http.Header{}
	h.Set("X-CMC_PRO_API_KEY", f.APIKey)
	return h
}

// get decodes the standard {status, data} envelope and returns data raw.
func (f *CoinMarketCapFetcher) get(ctx context.Context, op, path string, q url.Values, timeout time.Duration) (json.RawMessage, error) {
	var envelope struct {
		Status cmcStatus       `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	err := getJSON(ctx, f.Client, request{
		provider: f.Name(),
		op:       op,
		endpoint: f.BaseURL + path,
		query:    q,
		header:   f.header(),
		timeout:  timeout,
	}, &envelope)
	if err != nil {
		return nil, err
	}
	if envelope.Status.ErrorCode != 0 {
		return nil, &FetchError{
			Provider: f.Name(),
			Op:       op,
			Kind:     model.ErrProtocol,
			Err:      fmt.Errorf("error %d: %s", envelope.Status.ErrorCode, envelope.Status.ErrorMessage),
		}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, failure(f.Name(), op, model.ErrData, errors.New("missing data field"))
	}
	return envelope.Data, nil
}

// decodeAssets accepts data keyed by id, either as single objects or as arrays.
func decodeAssets(data json.RawMessage) ([]cmcAsset, error) {
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, err
	}
	var assets []cmcAsset
	for _, raw := range byID {
		var one cmcAsset
		if err := json.Unmarshal(raw, &one); err == nil {
			assets = append(assets, one)
			continue
		}
		var many []cmcAsset
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		assets = append(assets, many...)
	}
	return assets, nil
}

func (f *CoinMarketCapFetcher) FetchBatchSpot(ctx context.Context, ids []string) (map[string]model.Quote, error) {
	if len(ids) == 0 {
		return map[string]model.Quote{}, nil
	}
	q := url.Values{}
	q.Set("slug", strings.Join(ids, ","))
	q.Set("convert", "USD")

	data, err := f.get(ctx, "batch spot", "/v2/cryptocurrency/quotes/latest", q, SpotTimeout)
	if err != nil {
		return nil, err
	}
	assets, err := decodeAssets(data)
	if err != nil {
		return nil, failure(f.Name(), "batch spot", model.ErrPayload, err)
	}

	quotes := make(map[string]model.Quote, len(assets))
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assets {
		if a.Slug == "" {
			continue
		}
		f.slugs[a.Slug] = a.ID
		usd := a.Quote.USD
		if usd == nil || usd.Price == nil {
			continue
		}
		quote := model.Quote{Price: *usd.Price, Change24h: usd.PercentChange24h, HasChanges: true}
		quote.Changes[model.Timeframe24h] = usd.PercentChange24h
		quote.Changes[model.Timeframe7d] = usd.PercentChange7d
		quote.Changes[model.Timeframe30d] = usd.PercentChange30d
		quote.Changes[model.Timeframe90d] = usd.PercentChange90d
		quotes[a.Slug] = quote
	}
	return quotes, nil
}

func (f *CoinMarketCapFetcher) FetchSingleSpot(ctx context.Context, id string) (float64, error) {
	quotes, err := f.FetchBatchSpot(ctx, []string{id})
	if err != nil {
		return 0, err
	}
	q, ok := quotes[id]
	if !ok {
		return 0, failure(f.Name(), "single spot", model.ErrData, errors.New("no quote for "+id))
	}
	return q.Price, nil
}

// resolveID maps a slug to CoinMarketCap's numeric id, which the historical
// endpoint requires.
func (f *CoinMarketCapFetcher) resolveID(ctx context.Context, slug string) (int, error) {
	f.mu.Lock()
	id, ok := f.slugs[slug]
	f.mu.Unlock()
	if ok {
		return id, nil
	}
	if _, err := f.FetchBatchSpot(ctx, []string{slug}); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.slugs[slug]; ok {
		return id, nil
	}
	return 0, failure(f.Name(), "series", model.ErrData, errors.New("unknown slug "+slug))
}

func (f *CoinMarketCapFetcher) FetchSeries(ctx context.Context, slug string, tf model.Timeframe) ([]model.PricePoint, error) {
	id, err := f.resolveID(ctx, slug)
	if err != nil {
		return nil, err
	}
	w := tf.Window()
	interval, count := "daily", w.Days
	if tf == model.Timeframe24h {
		interval, count = "hourly", 24
	}
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	q.Set("convert", "USD")
	q.Set("interval", interval)
	q.Set("count", strconv.Itoa(count))
	q.Set("time_start", time.Now().AddDate(0, 0, -w.Days).UTC().Format(time.RFC3339))

	data, err := f.get(ctx, "series", "/v2/cryptocurrency/quotes/historical", q, SeriesTimeout)
	if err != nil {
		return nil, err
	}

	type historical struct {
		Quotes []struct {
			Timestamp time.Time `json:"timestamp"`
			Quote     struct {
				USD *cmcUSD `json:"USD"`
			} `json:"quote"`
		} `json:"quotes"`
	}
	var hist historical
	if err := json.Unmarshal(data, &hist); err != nil || hist.Quotes == nil {
		// v2 nests the payload under the numeric id.
		var byID map[string]historical
		if err := json.Unmarshal(data, &byID); err != nil {
			return nil, failure(f.Name(), "series", model.ErrPayload, err)
		}
		hist = byID[strconv.Itoa(id)]
	}
	if hist.Quotes == nil {
		return nil, failure(f.Name(), "series", model.ErrData, errors.New("missing quotes field"))
	}

	points := make([]model.PricePoint, 0, len(hist.Quotes))
	for _, hq := range hist.Quotes {
		if hq.Quote.USD == nil || hq.Quote.USD.Price == nil {
			continue
		}
		points = append(points, model.PricePoint{Time: hq.Timestamp, Price: *hq.Quote.USD.Price})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
