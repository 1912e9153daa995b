package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/models"
)

func TestFormatChange(t *testing.T) {
	cases := []struct {
		change, pct   float64
		wantText      string
		wantDirection string
	}{
		{1.5, 0.8, "+1.50 (0.80%)", "up"},
		{-2.25, -1.1, "-2.25 (-1.10%)", "down"},
		{0, 0, "+0.00 (0.00%)", "flat"},
	}
	for _, c := range cases {
		text, dir := formatChange(c.change, c.pct)
		if text != c.wantText || dir != c.wantDirection {
			t.Errorf("formatChange(%v, %v) = %q/%q, want %q/%q",
				c.change, c.pct, text, dir, c.wantText, c.wantDirection)
		}
	}
}

func TestBuildHolding(t *testing.T) {
	stock := models.Stock{
		ID:       "s1",
		Ticker:   "AAPL",
		BuyPrice: 150,
		Quantity: 10,
	}
	quote := models.Quote{
		Ticker:        "AAPL",
		CurrentPrice:  190,
		Change:        1.5,
		ChangePercent: 0.8,
		FetchedAt:     time.Now(),
	}

	v := buildHolding(stock, quote, true, time.Minute)
	if !v.HasQuote {
		t.Fatal("expected HasQuote")
	}
	if v.MarketValue != 1900 {
		t.Fatalf("MarketValue = %v, want 1900", v.MarketValue)
	}
	if v.GainLoss != 400 {
		t.Fatalf("GainLoss = %v, want 400", v.GainLoss)
	}
	if want := 400.0 / 1500.0 * 100; v.GainLossPercent != want {
		t.Fatalf("GainLossPercent = %v, want %v", v.GainLossPercent, want)
	}
	if v.ChangeText != "+1.50 (0.80%)" || v.Direction != "up" {
		t.Fatalf("unexpected change rendering: %q %q", v.ChangeText, v.Direction)
	}
	if v.Stale {
		t.Fatal("fresh quote must not be stale")
	}
}

func TestBuildHolding_NoQuote(t *testing.T) {
	stock := models.Stock{Ticker: "MSFT", BuyPrice: 100, Quantity: 5}
	v := buildHolding(stock, models.Quote{}, false, time.Minute)
	if v.HasQuote {
		t.Fatal("HasQuote must be false without a cached quote")
	}
	if v.MarketValue != 0 || v.GainLoss != 0 {
		t.Fatalf("gain figures must stay zero without a quote: %+v", v)
	}
}

func TestBuildHolding_StaleQuote(t *testing.T) {
	stock := models.Stock{Ticker: "AAPL", BuyPrice: 1, Quantity: 1}
	quote := models.Quote{Ticker: "AAPL", CurrentPrice: 2, FetchedAt: time.Now().Add(-5 * time.Minute)}
	v := buildHolding(stock, quote, true, time.Minute)
	if !v.Stale {
		t.Fatal("old quote must be flagged stale")
	}
	if v.CurrentPrice != 2 {
		t.Fatal("stale quotes are still served")
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[finnhub.Condition]int{
		finnhub.CondQuotaExceeded:  http.StatusTooManyRequests,
		finnhub.CondPlanRestricted: http.StatusForbidden,
		finnhub.CondAuthFailure:    http.StatusBadGateway,
		finnhub.CondTransient:      http.StatusBadGateway,
		finnhub.CondNetwork:        http.StatusServiceUnavailable,
		finnhub.CondGeneric:        http.StatusBadRequest,
	}
	for cond, want := range cases {
		if got := statusFor(cond); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", cond, got, want)
		}
	}
}

func TestErrorState(t *testing.T) {
	ae := &finnhub.APIError{
		Condition:   finnhub.CondPlanRestricted,
		Message:     "candle access requires a paid plan",
		UpgradeHint: "upgrade at finnhub.io/pricing",
	}
	es := errorState(ae)
	if es.Type != "plan_restricted" {
		t.Fatalf("Type = %q", es.Type)
	}
	if es.CanRetry {
		t.Fatal("plan restriction must not be retryable")
	}
	if es.Details == "" {
		t.Fatal("upgrade hint must be carried in Details")
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if bearerToken(r) != "" {
		t.Fatal("no header should yield empty token")
	}

	r.Header.Set("Authorization", "Bearer abc123")
	if got := bearerToken(r); got != "abc123" {
		t.Fatalf("bearerToken = %q", got)
	}

	r.Header.Set("Authorization", "Basic abc123")
	if bearerToken(r) != "" {
		t.Fatal("non-bearer scheme should yield empty token")
	}
}

func TestParseDays(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"", 30},
		{"days=7", 7},
		{"days=0", 30},
		{"days=-3", 30},
		{"days=oops", 30},
		{"days=9999", maxExportDays},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/export?"+c.query, nil)
		if got := parseDays(r, 30); got != c.want {
			t.Errorf("parseDays(%q) = %d, want %d", c.query, got, c.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := corsMiddleware(inner, "http://localhost:5173")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/portfolio", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatal("non-preflight requests must reach the inner handler")
	}
}

func TestAlertRequestValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	cases := []struct {
		name   string
		req    alertRequest
		wantOK bool
	}{
		{"both thresholds", alertRequest{UpperThreshold: f(150), LowerThreshold: f(140)}, true},
		{"upper only", alertRequest{UpperThreshold: f(150)}, true},
		{"lower only", alertRequest{LowerThreshold: f(140)}, true},
		{"none", alertRequest{}, false},
		{"inverted", alertRequest{UpperThreshold: f(140), LowerThreshold: f(150)}, false},
		{"equal", alertRequest{UpperThreshold: f(140), LowerThreshold: f(140)}, false},
		{"negative upper", alertRequest{UpperThreshold: f(-1)}, false},
	}
	for _, c := range cases {
		msg := c.req.validate()
		if (msg == "") != c.wantOK {
			t.Errorf("%s: validate() = %q, wantOK=%v", c.name, msg, c.wantOK)
		}
	}
}

func TestStockRequestToStock(t *testing.T) {
	req := stockRequest{Ticker: " aapl ", BuyDate: "2024-03-15", BuyPrice: 150, Quantity: 10}
	stock, msg := req.toStock("u1")
	if msg != "" {
		t.Fatalf("unexpected validation error: %s", msg)
	}
	if stock.Ticker != "AAPL" {
		t.Fatalf("ticker not normalized: %q", stock.Ticker)
	}
	if stock.BuyDate.Format("2006-01-02") != "2024-03-15" {
		t.Fatalf("buy date = %v", stock.BuyDate)
	}

	bad := []stockRequest{
		{Ticker: "", BuyDate: "2024-03-15", BuyPrice: 1, Quantity: 1},
		{Ticker: "AAPL", BuyDate: "15/03/2024", BuyPrice: 1, Quantity: 1},
		{Ticker: "AAPL", BuyDate: "2024-03-15", BuyPrice: 0, Quantity: 1},
		{Ticker: "AAPL", BuyDate: "2024-03-15", BuyPrice: 1, Quantity: 0},
	}
	for i, b := range bad {
		if _, msg := b.toStock("u1"); msg == "" {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
