package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjannette/vitanova-gold/internal/httputil"
)

const (
	DefaultApisedBaseURL = "https://gold.g.apised.com"
	ApisedSource         = "gold.g.apised.com"

	latestPath  = "/v1/latest"
	latestQuery = "metals=XAU&base_currency=AED&weight_unit=gram"
)

// UpstreamError is returned for every failure to obtain a usable price from
// the provider. Reason is safe to show to API clients.
type UpstreamError struct {
	Reason string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type ApisedConfig struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RateLimitPerMin int
	HTTPClient      *http.Client
}

// ApisedClient fetches the 24k gold price in AED per gram.
type ApisedClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      httputil.RetryConfig
	limiter    *rate.Limiter
}

func NewApisedClient(cfg ApisedConfig) *ApisedClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultApisedBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RateLimitPerMin > 0 {
		limit = rate.Limit(float64(cfg.RateLimitPerMin) / 60.0)
	}

	return &ApisedClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: client,
		retry:      httputil.RetryConfig{MaxAttempts: 1},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// FetchPrice makes exactly one request to the provider.
func (c *ApisedClient) FetchPrice(ctx context.Context) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, &UpstreamError{Reason: "rate limit wait", Err: err}
	}

	url := c.baseURL + latestPath + "?" + latestQuery
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) {
			return 0, &UpstreamError{Reason: fmt.Sprintf("API returned status %d: %s", statusErr.Code, statusErr.Body), Err: err}
		}
		return 0, &UpstreamError{Reason: "price provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, &UpstreamError{Reason: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &UpstreamError{Reason: fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	return ParseLatest(body)
}

// ParseLatest extracts the gold price from a provider payload. The provider
// has been observed to answer in several shapes; they are tried in order.
func ParseLatest(body []byte) (float64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return 0, &UpstreamError{Reason: "undecodable response", Err: err}
	}

	if status, _ := data["status"].(string); status == "error" || data["error"] != nil {
		msg := firstString(data, "message", "error")
		if msg == "" {
			msg = "Unknown error"
		}
		return 0, &UpstreamError{Reason: msg}
	}

	price, ok := extractPrice(data)
	if !ok {
		return 0, &UpstreamError{Reason: "could not extract price from API response"}
	}
	if price <= 0 {
		return 0, &UpstreamError{Reason: fmt.Sprintf("invalid price: %f", price)}
	}
	return price, nil
}

func extractPrice(data map[string]any) (float64, bool) {
	nested := []string{"price_gram_24k", "price_24k", "price"}

	if d, ok := data["data"].(map[string]any); ok {
		if mp, ok := d["metal_prices"].(map[string]any); ok {
			if xau, ok := mp["XAU"].(map[string]any); ok {
				if v, ok := firstNumber(xau, nested...); ok {
					return v, true
				}
			}
		}
	}

	if m, ok := data["metals"].(map[string]any); ok {
		if xau, ok := m["XAU"].(map[string]any); ok {
			if v, ok := firstNumber(xau, nested...); ok {
				return v, true
			}
		}
	}

	if v, ok := firstNumber(data, "XAU", "gold", "price"); ok {
		return v, true
	}

	if d, ok := data["data"].(map[string]any); ok {
		if v, ok := firstNumber(d, "XAU", "price"); ok {
			return v, true
		}
	}

	for _, key := range []string{"XAU", "XAUAED", "gold_price", "gold"} {
		obj, ok := data[key].(map[string]any)
		if !ok {
			if v, ok := toNumber(data[key]); ok && v != 0 {
				return v, true
			}
			continue
		}
		if v, ok := firstNumber(obj, "price", "price_gram_24k", "value"); ok {
			return v, true
		}
	}
	return 0, false
}

// firstNumber returns the first non-zero numeric value under keys.
func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := toNumber(m[k]); ok && v != 0 {
			return v, true
		}
	}
	return 0, false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
