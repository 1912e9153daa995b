package quote_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stocktrack/backend/internal/models"
	"github.com/stocktrack/backend/internal/quote"
)

func sampleQuote(ticker string, price float64) models.Quote {
	return models.Quote{
		Ticker:        ticker,
		CurrentPrice:  price,
		Change:        1.5,
		ChangePercent: 0.8,
		High:          price + 2,
		Low:           price - 2,
		Open:          price - 1,
		PreviousClose: price - 1.5,
		Volume:        1_000_000,
		Timestamp:     time.Now().UTC().Truncate(time.Second),
		FetchedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func runStoreTests(t *testing.T, store quote.Store) {
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "AAPL"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	q := sampleQuote("AAPL", 190.12)
	if err := store.Put(ctx, q); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, "AAPL")
	if err != nil || !ok {
		t.Fatalf("get after put: ok=%v err=%v", ok, err)
	}
	if got.CurrentPrice != 190.12 {
		t.Fatalf("expected 190.12, got %v", got.CurrentPrice)
	}

	// Idempotent: writing the same snapshot twice changes nothing.
	if err := store.Put(ctx, q); err != nil {
		t.Fatalf("second put: %v", err)
	}
	again, _, _ := store.Get(ctx, "AAPL")
	if again != got {
		t.Fatalf("second identical write changed the snapshot: %+v vs %+v", again, got)
	}

	// Wholesale replacement, last write wins.
	newer := sampleQuote("AAPL", 191.00)
	if err := store.Put(ctx, newer); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _, _ = store.Get(ctx, "AAPL")
	if got.CurrentPrice != 191.00 {
		t.Fatalf("expected replacement to win, got %v", got.CurrentPrice)
	}

	if err := store.Put(ctx, sampleQuote("MSFT", 410.50)); err != nil {
		t.Fatalf("put MSFT: %v", err)
	}

	all, err := store.GetAll(ctx, []string{"AAPL", "MSFT", "MISSING"})
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(all))
	}
	if all["MSFT"].CurrentPrice != 410.50 {
		t.Fatalf("MSFT price wrong: %v", all["MSFT"].CurrentPrice)
	}

	tickers, err := store.Tickers(ctx)
	if err != nil {
		t.Fatalf("tickers: %v", err)
	}
	if len(tickers) != 2 || tickers[0] != "AAPL" || tickers[1] != "MSFT" {
		t.Fatalf("unexpected tickers: %v", tickers)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, quote.NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	runStoreTests(t, quote.NewRedisStore(client))
}

func TestStaleAdvisory(t *testing.T) {
	q := sampleQuote("AAPL", 190)
	if q.Stale(time.Minute) {
		t.Fatal("fresh quote reported stale")
	}

	q.FetchedAt = time.Now().Add(-2 * time.Minute)
	if !q.Stale(time.Minute) {
		t.Fatal("old quote not reported stale")
	}

	// A stale quote is still served.
	store := quote.NewMemoryStore()
	ctx := context.Background()
	if err := store.Put(ctx, q); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, _ := store.Get(ctx, "AAPL")
	if !ok || got.CurrentPrice != 190 {
		t.Fatal("stale quote was not served from cache")
	}
}
