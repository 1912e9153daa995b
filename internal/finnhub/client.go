package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marstr/collection/v2"

	"github.com/stocktrack/backend/internal/httputil"
	"github.com/stocktrack/backend/internal/models"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// UsageRecorder receives one unit per completed upstream call, plus any
// rate-limit counters the upstream reports in response headers.
type UsageRecorder interface {
	RecordCall()
	FoldHeaders(remaining, limit int, reset time.Time)
	MarkUnreachable(err error)
}

type Options struct {
	BaseURL         string
	SearchCacheSize uint
	SearchCacheTTL  time.Duration
}

// Client talks to the Finnhub REST API. All failures come back as
// *APIError so callers can tell quota exhaustion from plan restrictions
// from transient faults.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	usage      UsageRecorder

	searchCache *collection.LRUCache[string, searchEntry]
	searchTTL   time.Duration
}

type searchEntry struct {
	matches   []models.SymbolMatch
	fetchedAt time.Time
}

func NewClient(apiKey string, usage UsageRecorder, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.SearchCacheSize == 0 {
		opts.SearchCacheSize = 256
	}
	if opts.SearchCacheTTL <= 0 {
		opts.SearchCacheTTL = 10 * time.Minute
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		usage:       usage,
		searchCache: collection.NewLRUCache[string, searchEntry](opts.SearchCacheSize),
		searchTTL:   opts.SearchCacheTTL,
	}
}

// NormalizeTickers trims, uppercases and de-duplicates a ticker set,
// preserving first-seen order. Empty entries are dropped.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Quotes fetches a snapshot for each unique ticker. Per-ticker failures
// land in the second map and never poison the rest of the batch. A
// quota/plan/auth failure stops the loop (further calls would only burn
// budget) and is returned as the batch error alongside whatever was
// already fetched.
func (c *Client) Quotes(ctx context.Context, tickers []string) (map[string]models.Quote, map[string]*APIError, error) {
	unique := NormalizeTickers(tickers)
	if len(unique) == 0 {
		return nil, nil, &APIError{Condition: CondGeneric, Message: "no tickers provided"}
	}

	quotes := make(map[string]models.Quote, len(unique))
	failures := make(map[string]*APIError)

	for _, ticker := range unique {
		q, err := c.Quote(ctx, ticker)
		if err != nil {
			ae := AsAPIError(err)
			failures[ticker] = ae
			switch ae.Condition {
			case CondQuotaExceeded, CondPlanRestricted, CondAuthFailure:
				return quotes, failures, ae
			}
			continue
		}
		quotes[ticker] = q
	}
	return quotes, failures, nil
}

// Quote fetches a single snapshot. Malformed payloads (non-finite numbers,
// or the all-zero body Finnhub returns for unknown symbols) are reported
// as CondMalformed rather than cached as garbage.
func (c *Client) Quote(ctx context.Context, ticker string) (models.Quote, error) {
	var raw struct {
		C  float64 `json:"c"`
		D  float64 `json:"d"`
		DP float64 `json:"dp"`
		H  float64 `json:"h"`
		L  float64 `json:"l"`
		O  float64 `json:"o"`
		PC float64 `json:"pc"`
		V  float64 `json:"v"`
		T  int64   `json:"t"`
	}
	if err := c.getJSON(ctx, "/quote", url.Values{"symbol": {ticker}}, &raw); err != nil {
		return models.Quote{}, err
	}

	if !finite(raw.C, raw.D, raw.DP, raw.H, raw.L, raw.O, raw.PC) {
		return models.Quote{}, &APIError{Condition: CondMalformed, Message: fmt.Sprintf("non-numeric quote fields for %s", ticker)}
	}
	if raw.C == 0 && raw.T == 0 {
		return models.Quote{}, &APIError{Condition: CondMalformed, Message: fmt.Sprintf("empty quote payload for %s", ticker)}
	}

	return models.Quote{
		Ticker:        ticker,
		CurrentPrice:  raw.C,
		Change:        raw.D,
		ChangePercent: raw.DP,
		High:          raw.H,
		Low:           raw.L,
		Open:          raw.O,
		PreviousClose: raw.PC,
		Volume:        raw.V,
		Timestamp:     time.Unix(raw.T, 0).UTC(),
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// Candles fetches an OHLCV series. An upstream "no_data" status is a
// terminal condition, not a retryable fault.
func (c *Client) Candles(ctx context.Context, symbol, resolution string, from, to int64) (models.Candle, error) {
	var candle models.Candle
	params := url.Values{
		"symbol":     {strings.ToUpper(strings.TrimSpace(symbol))},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from, 10)},
		"to":         {strconv.FormatInt(to, 10)},
	}
	if err := c.getJSON(ctx, "/stock/candle", params, &candle); err != nil {
		return models.Candle{}, err
	}

	switch candle.Status {
	case "ok":
	case "no_data":
		return candle, &APIError{Condition: CondNoData, Message: "no data for the requested range"}
	default:
		return models.Candle{}, &APIError{Condition: CondMalformed, Message: fmt.Sprintf("unexpected candle status %q", candle.Status)}
	}

	n := len(candle.T)
	if len(candle.O) != n || len(candle.H) != n || len(candle.L) != n || len(candle.C) != n {
		return models.Candle{}, &APIError{Condition: CondMalformed, Message: "candle arrays have mismatched lengths"}
	}
	return candle, nil
}

// Search looks up symbols matching query. Results are served from an LRU
// cache while fresh; search results change rarely enough that a short TTL
// saves real quota.
func (c *Client) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &APIError{Condition: CondGeneric, Message: "empty search query"}
	}

	key := strings.ToLower(query)
	if entry, ok := c.searchCache.Get(key); ok && time.Since(entry.fetchedAt) < c.searchTTL {
		return entry.matches, nil
	}

	var raw struct {
		Count  int `json:"count"`
		Result []struct {
			Symbol        string `json:"symbol"`
			DisplaySymbol string `json:"displaySymbol"`
			Description   string `json:"description"`
			Type          string `json:"type"`
		} `json:"result"`
	}
	if err := c.getJSON(ctx, "/search", url.Values{"q": {query}}, &raw); err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(raw.Result))
	for _, r := range raw.Result {
		if strings.TrimSpace(r.Symbol) == "" {
			continue
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:        r.Symbol,
			DisplaySymbol: r.DisplaySymbol,
			Description:   r.Description,
			Type:          r.Type,
			Label:         fmt.Sprintf("%s - %s", r.Symbol, r.Description),
		})
	}

	c.searchCache.Put(key, searchEntry{matches: matches, fetchedAt: time.Now()})
	return matches, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Finnhub-Token", c.apiKey)
		return req, nil
	})
	if err != nil {
		if he := httputil.AsHTTPError(err); he != nil {
			c.recordCall(nil)
			return statusError(he.Status, he.Body)
		}
		if c.usage != nil {
			c.usage.MarkUnreachable(err)
		}
		return &APIError{Condition: CondNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.recordCall(resp)

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Condition: CondMalformed, Message: fmt.Sprintf("decode: %v", err)}
	}
	return nil
}

// recordCall charges one unit against the quota mirror and folds in the
// rate-limit headers Finnhub sends on every response.
func (c *Client) recordCall(resp *http.Response) {
	if c.usage == nil {
		return
	}
	c.usage.RecordCall()
	if resp == nil {
		return
	}

	remaining, err1 := strconv.Atoi(resp.Header.Get("X-Ratelimit-Remaining"))
	limit, err2 := strconv.Atoi(resp.Header.Get("X-Ratelimit-Limit"))
	if err1 != nil || err2 != nil {
		return
	}
	var reset time.Time
	if sec, err := strconv.ParseInt(resp.Header.Get("X-Ratelimit-Reset"), 10, 64); err == nil && sec > 0 {
		reset = time.Unix(sec, 0)
	}
	c.usage.FoldHeaders(remaining, limit, reset)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
