package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stocktrack/backend/internal/models"
)

type fakeClient struct {
	mu       sync.Mutex
	received [][]byte
	closed   bool
}

func (c *fakeClient) SendBytes(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, b)
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	h := New()
	a := &fakeClient{}
	b := &fakeClient{}

	added := h.Subscribe(a, []string{"aapl", "AAPL", " aapl "})
	if len(added) != 1 || added[0] != "AAPL" {
		t.Fatalf("expected one normalized subscription, got %v", added)
	}
	h.Subscribe(b, []string{"MSFT"})

	h.HandleQuote(context.Background(), models.Quote{Ticker: "AAPL", CurrentPrice: 190.12})

	if a.count() != 1 {
		t.Fatalf("AAPL subscriber should receive 1 frame, got %d", a.count())
	}
	if b.count() != 0 {
		t.Fatalf("MSFT subscriber should receive nothing, got %d", b.count())
	}

	var env Envelope
	if err := json.Unmarshal(a.received[0], &env); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if env.Type != "quote" || env.Data.CurrentPrice != 190.12 {
		t.Fatalf("unexpected frame: %+v", env)
	}
}

func TestHub_ResubscribeIdempotent(t *testing.T) {
	h := New()
	a := &fakeClient{}

	h.Subscribe(a, []string{"AAPL"})
	if added := h.Subscribe(a, []string{"AAPL"}); len(added) != 0 {
		t.Fatalf("re-subscribe must add nothing, got %v", added)
	}

	h.HandleQuote(context.Background(), models.Quote{Ticker: "AAPL"})
	if a.count() != 1 {
		t.Fatalf("duplicate subscription must not double frames, got %d", a.count())
	}
}

func TestHub_UnsubscribeAndUnregister(t *testing.T) {
	h := New()
	a := &fakeClient{}

	h.Subscribe(a, []string{"AAPL", "MSFT"})

	removed := h.Unsubscribe(a, []string{"AAPL", "TSLA"})
	if len(removed) != 1 || removed[0] != "AAPL" {
		t.Fatalf("expected only AAPL removed, got %v", removed)
	}
	if h.SubscriberCount("AAPL") != 0 {
		t.Fatal("AAPL audience should be empty")
	}
	if h.SubscriberCount("MSFT") != 1 {
		t.Fatal("MSFT subscription should survive")
	}

	h.Unregister(a)
	if h.SubscriberCount("MSFT") != 0 {
		t.Fatal("unregister should drop all subscriptions")
	}

	// Broadcast to an empty audience must not panic.
	h.HandleQuote(context.Background(), models.Quote{Ticker: "MSFT"})
}
