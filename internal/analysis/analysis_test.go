package analysis

import (
	"testing"

	"github.com/stocktrack/backend/internal/models"
)

func TestEvaluate_Bands(t *testing.T) {
	cases := []struct {
		pct    float64
		rating string
	}{
		{25, "excellent"},
		{15, "excellent"},
		{14.9, "good"},
		{5, "good"},
		{4.9, "flat"},
		{0, "flat"},
		{-0.1, "caution"},
		{-10, "caution"},
		{-10.1, "poor"},
		{-40, "poor"},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.pct).Rating; got != tc.rating {
			t.Fatalf("Evaluate(%v) = %q, want %q", tc.pct, got, tc.rating)
		}
	}
}

func TestPortfolio(t *testing.T) {
	stocks := []models.Stock{
		{Ticker: "AAPL", BuyPrice: 100, Quantity: 10}, // cost 1000
		{Ticker: "MSFT", BuyPrice: 200, Quantity: 5},  // cost 1000, no quote
	}
	quotes := map[string]models.Quote{
		"AAPL": {Ticker: "AAPL", CurrentPrice: 120}, // value 1200
	}

	v := Portfolio(stocks, quotes)
	if v.Invested != 2000 {
		t.Fatalf("invested = %v, want 2000", v.Invested)
	}
	// MSFT counts at cost with no quote: 1200 + 1000 = 2200, +10%.
	if v.CurrentValue != 2200 {
		t.Fatalf("current = %v, want 2200", v.CurrentValue)
	}
	if v.ReturnPercent != 10 {
		t.Fatalf("returnPct = %v, want 10", v.ReturnPercent)
	}
	if v.Rating != "good" {
		t.Fatalf("rating = %q, want good", v.Rating)
	}
}

func TestPortfolio_Empty(t *testing.T) {
	v := Portfolio(nil, nil)
	if v.ReturnPercent != 0 || v.Rating != "flat" {
		t.Fatalf("empty portfolio should grade flat at 0%%, got %+v", v)
	}
}
