package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"TickerFeed/internal/model"
)

// newHTTPClient builds a client with optional proxy support. Deadlines are
// applied per call through the request context.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Transport: transport}
}

// request describes one GET against a provider.
type request struct {
	provider string
	op       string
	endpoint string
	query    url.Values
	header   http.Header
	timeout  time.Duration
}

// getBody performs the GET and returns the raw body of a 2xx response.
func getBody(ctx context.Context, client *http.Client, r request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u := r.endpoint
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, failure(r.provider, r.op, model.ErrNetwork, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, failure(r.provider, r.op, model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure(r.provider, r.op, model.ErrNetwork, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Provider:   r.provider,
			Op:         r.op,
			Kind:       model.ErrProtocol,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("body: %s", truncate(body, 200)),
		}
	}
	return body, nil
}

// getJSON performs the GET and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, r request, out any) error {
	body, err := getBody(ctx, client, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return failure(r.provider, r.op, model.ErrPayload, fmt.Errorf("decode: %w", err))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
