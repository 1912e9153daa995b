package models

import "time"

// Quote is a point-in-time price snapshot for a ticker. Snapshots are
// immutable: a newer fetch replaces the whole record, never a single field.
type Quote struct {
	Ticker        string    `json:"ticker"`
	CurrentPrice  float64   `json:"currentPrice"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previousClose"`
	Volume        float64   `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

// Stale reports whether the snapshot is older than ttl. Staleness is
// advisory: consumers decide what to do with a stale value, the cache
// keeps serving it either way.
func (q Quote) Stale(ttl time.Duration) bool {
	if q.FetchedAt.IsZero() {
		return true
	}
	return time.Since(q.FetchedAt) > ttl
}

// Candle carries OHLCV series in Finnhub's parallel-array shape.
// Status is "ok", "no_data" or "error".
type Candle struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// QuotePoint is one persisted quote-history row, recorded on every poll
// refresh. Powers exports and the candle fallback.
type QuotePoint struct {
	ID            int64     `json:"id"`
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        float64   `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// SymbolMatch is one symbol-search result.
type SymbolMatch struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	Label         string `json:"label"`
}
