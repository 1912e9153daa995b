package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/models"
	"github.com/stocktrack/backend/internal/quote"
)

type fakeHistory struct {
	points []models.QuotePoint
}

func (f *fakeHistory) Range(_ context.Context, _ string, _, _ time.Time) ([]models.QuotePoint, error) {
	return f.points, nil
}

func (f *fakeHistory) Since(_ context.Context, _ []string, _ time.Time) ([]models.QuotePoint, error) {
	return f.points, nil
}

type fakeAlertStore struct {
	existing *models.PriceAlert
	updated  *models.PriceAlert
}

func (f *fakeAlertStore) Add(_ context.Context, a *models.PriceAlert) (*models.PriceAlert, error) {
	return a, nil
}

func (f *fakeAlertStore) Get(_ context.Context, id, userID string) (*models.PriceAlert, error) {
	if f.existing != nil && f.existing.ID == id && f.existing.UserID == userID {
		return f.existing, nil
	}
	return nil, nil
}

func (f *fakeAlertStore) ListByUser(_ context.Context, _ string) ([]models.PriceAlert, error) {
	return nil, nil
}

func (f *fakeAlertStore) Update(_ context.Context, a *models.PriceAlert) (*models.PriceAlert, error) {
	f.updated = a
	return a, nil
}

func (f *fakeAlertStore) Remove(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func upstreamServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testServer(deps Deps) *Server {
	if deps.StaleAfter <= 0 {
		deps.StaleAfter = time.Minute
	}
	return &Server{deps: deps}
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleQuotes_QuotaExhaustedServesCached(t *testing.T) {
	upstream, _ := upstreamServer(t, http.StatusTooManyRequests, "")
	fh := finnhub.NewClient("key", nil, finnhub.Options{BaseURL: upstream.URL})

	store := quote.NewMemoryStore()
	stale := models.Quote{
		Ticker:       "AAPL",
		CurrentPrice: 190.12,
		FetchedAt:    time.Now().Add(-5 * time.Minute),
	}
	if err := store.Put(context.Background(), stale); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	s := testServer(Deps{Finnhub: fh, Cache: store})
	rec := postJSON(t, s.handleQuotes, "/api/finnhub/quotes", quotesRequest{Tickers: []string{"AAPL"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with cached data", rec.Code)
	}
	var resp quotesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatal("degraded response still succeeds")
	}
	if got := resp.Data["AAPL"].CurrentPrice; got != 190.12 {
		t.Fatalf("cached price not served: %v", got)
	}
	if !resp.Stale["AAPL"] {
		t.Fatal("served snapshot must be flagged stale")
	}
	if resp.Error == nil || resp.Error.Type != "quota_exceeded" {
		t.Fatalf("expected quota_exceeded error attached, got %+v", resp.Error)
	}
}

func TestHandleQuotes_FreshCacheAvoidsUpstream(t *testing.T) {
	upstream, calls := upstreamServer(t, http.StatusOK, `{"c":1,"t":1700000000}`)
	fh := finnhub.NewClient("key", nil, finnhub.Options{BaseURL: upstream.URL})

	store := quote.NewMemoryStore()
	fresh := models.Quote{Ticker: "AAPL", CurrentPrice: 191, FetchedAt: time.Now()}
	if err := store.Put(context.Background(), fresh); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	s := testServer(Deps{Finnhub: fh, Cache: store})
	rec := postJSON(t, s.handleQuotes, "/api/finnhub/quotes", quotesRequest{Tickers: []string{"AAPL"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if calls.Load() != 0 {
		t.Fatalf("fresh cache hit must not reach upstream, got %d calls", calls.Load())
	}
	var resp quotesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["AAPL"].CurrentPrice != 191 || resp.Stale["AAPL"] {
		t.Fatalf("expected fresh cached quote, got %+v stale=%v", resp.Data["AAPL"], resp.Stale["AAPL"])
	}
}

func TestHandleQuotes_UpstreamAuthFailure(t *testing.T) {
	upstream, _ := upstreamServer(t, http.StatusUnauthorized, "")
	fh := finnhub.NewClient("bad-key", nil, finnhub.Options{BaseURL: upstream.URL})

	s := testServer(Deps{Finnhub: fh, Cache: quote.NewMemoryStore()})
	rec := postJSON(t, s.handleQuotes, "/api/finnhub/quotes", quotesRequest{Tickers: []string{"AAPL"}})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 for an upstream auth failure", rec.Code)
	}
	var resp quotesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Fatal("error response must not claim success")
	}
	if resp.Error == nil || resp.Error.Type != "auth_failure" {
		t.Fatalf("expected auth_failure error, got %+v", resp.Error)
	}
}

func TestHandleCandle_PlanRestrictedFallsBackToHistory(t *testing.T) {
	upstream, _ := upstreamServer(t, http.StatusForbidden, "")
	fh := finnhub.NewClient("free-key", nil, finnhub.Options{BaseURL: upstream.URL})

	now := time.Now().UTC().Truncate(time.Second)
	history := &fakeHistory{points: []models.QuotePoint{
		{Ticker: "AAPL", Price: 189.5, Volume: 1200, Timestamp: now.Add(-2 * time.Hour)},
		{Ticker: "AAPL", Price: 191.25, Volume: 900, Timestamp: now.Add(-time.Hour)},
	}}

	s := testServer(Deps{Finnhub: fh, History: history})
	rec := postJSON(t, s.handleCandle, "/api/finnhub/candle", candleRequest{
		Symbol:     "aapl",
		Resolution: "D",
		From:       now.Add(-24 * time.Hour).Unix(),
		To:         now.Unix(),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 from the history fallback", rec.Code)
	}
	var resp candleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "history" {
		t.Fatalf("source = %q, want history", resp.Source)
	}
	if resp.Status != "ok" || len(resp.T) != 2 {
		t.Fatalf("unexpected series: %+v", resp.Candle)
	}
	if resp.C[1] != 191.25 || resp.V[0] != 1200 {
		t.Fatalf("history values not carried into the series: %+v", resp.Candle)
	}
	if resp.Error == nil || resp.Error.Type != "plan_restricted" {
		t.Fatalf("expected plan_restricted error attached, got %+v", resp.Error)
	}
}

func TestHandleCandle_PlanRestrictedWithoutHistory(t *testing.T) {
	upstream, _ := upstreamServer(t, http.StatusForbidden, "")
	fh := finnhub.NewClient("free-key", nil, finnhub.Options{BaseURL: upstream.URL})

	s := testServer(Deps{Finnhub: fh, History: &fakeHistory{}})
	rec := postJSON(t, s.handleCandle, "/api/finnhub/candle", candleRequest{
		Symbol: "AAPL",
		From:   time.Now().Add(-time.Hour).Unix(),
		To:     time.Now().Unix(),
	})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 when no fallback data exists", rec.Code)
	}
}

func TestHandleAlertUpdate_ToggleActiveKeepsThresholds(t *testing.T) {
	upper := 150.0
	alerts := &fakeAlertStore{existing: &models.PriceAlert{
		ID:             "a1",
		UserID:         "u1",
		Ticker:         "AAPL",
		UpperThreshold: &upper,
		IsActive:       true,
	}}
	s := testServer(Deps{Alerts: alerts})

	body := bytes.NewReader([]byte(`{"isActive":false}`))
	req := httptest.NewRequest(http.MethodPut, "/api/alerts/a1", body)
	req.SetPathValue("id", "a1")
	req = req.WithContext(context.WithValue(req.Context(), userKey, &models.User{ID: "u1"}))

	rec := httptest.NewRecorder()
	s.handleAlertUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if alerts.updated == nil {
		t.Fatal("update never reached the store")
	}
	if alerts.updated.IsActive {
		t.Fatal("alert must be deactivated")
	}
	if alerts.updated.UpperThreshold == nil || *alerts.updated.UpperThreshold != 150 {
		t.Fatalf("stored threshold must be carried forward, got %+v", alerts.updated.UpperThreshold)
	}
}
