// Package hub fans refreshed quotes out to websocket subscribers. The
// poll loop stays the single source of truth; the hub only mirrors what
// lands in the cache to whoever asked for that ticker.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/models"
)

// Client is one connected subscriber. The websocket transport lives in
// the API layer; the hub only needs a send path.
type Client interface {
	SendBytes(b []byte)
	Close()
}

// Envelope is the wire frame pushed to subscribers.
type Envelope struct {
	Type string       `json:"type"`
	Data models.Quote `json:"data"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[Client]bool
	clientSubs  map[Client]map[string]bool
}

func New() *Hub {
	return &Hub{
		subscribers: make(map[string]map[Client]bool),
		clientSubs:  make(map[Client]map[string]bool),
	}
}

// Subscribe adds the client to each ticker's audience. Tickers are
// normalized the same way the fetch path normalizes them; re-subscribing
// is idempotent. Returns the tickers actually added.
func (h *Hub) Subscribe(c Client, tickers []string) []string {
	unique := finnhub.NormalizeTickers(tickers)

	h.mu.Lock()
	defer h.mu.Unlock()

	var added []string
	for _, t := range unique {
		if h.clientSubs[c] == nil {
			h.clientSubs[c] = make(map[string]bool)
		}
		if h.clientSubs[c][t] {
			continue
		}
		h.clientSubs[c][t] = true
		if h.subscribers[t] == nil {
			h.subscribers[t] = make(map[Client]bool)
		}
		h.subscribers[t][c] = true
		added = append(added, t)
	}
	return added
}

// Unsubscribe removes the client from each ticker's audience. Returns
// the tickers actually removed.
func (h *Hub) Unsubscribe(c Client, tickers []string) []string {
	unique := finnhub.NormalizeTickers(tickers)

	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []string
	subs := h.clientSubs[c]
	if subs == nil {
		return nil
	}
	for _, t := range unique {
		if !subs[t] {
			continue
		}
		delete(subs, t)
		h.dropSubscriber(t, c)
		removed = append(removed, t)
	}
	return removed
}

// Unregister removes the client entirely. Called when the connection
// closes.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for t := range h.clientSubs[c] {
		h.dropSubscriber(t, c)
	}
	delete(h.clientSubs, c)
}

// HandleQuote broadcasts a refreshed quote to its subscribers. Runs last
// in the poll pipeline, after the cache write and alert evaluation.
func (h *Hub) HandleQuote(_ context.Context, q models.Quote) {
	payload, err := json.Marshal(Envelope{Type: "quote", Data: q})
	if err != nil {
		fmt.Printf("[HUB] Encode quote %s: %v\n", q.Ticker, err)
		return
	}

	h.mu.RLock()
	targets := make([]Client, 0, len(h.subscribers[q.Ticker]))
	for c := range h.subscribers[q.Ticker] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.SendBytes(payload)
	}
}

// SubscriberCount reports the audience size for a ticker.
func (h *Hub) SubscriberCount(ticker string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[ticker])
}

// Caller holds h.mu.
func (h *Hub) dropSubscriber(ticker string, c Client) {
	delete(h.subscribers[ticker], c)
	if len(h.subscribers[ticker]) == 0 {
		delete(h.subscribers, ticker)
	}
}
