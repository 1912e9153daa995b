// Package quote holds the last-known price snapshot per ticker.
//
// The cache never blocks a reader and never evicts: a stale snapshot is
// still the best answer available, and staleness is advisory (consumers
// check Quote.Stale). Writes replace the whole snapshot, last-write-wins
// by fetch completion order, which is safe because snapshots are
// idempotent.
package quote

import (
	"context"
	"sort"
	"sync"

	"github.com/stocktrack/backend/internal/models"
)

// Store is the cache contract. The memory store backs a single instance;
// the Redis store shares snapshots across instances.
type Store interface {
	Get(ctx context.Context, ticker string) (models.Quote, bool, error)
	GetAll(ctx context.Context, tickers []string) (map[string]models.Quote, error)
	Put(ctx context.Context, q models.Quote) error
	Tickers(ctx context.Context) ([]string, error)
}

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quotes: make(map[string]models.Quote)}
}

func (s *MemoryStore) Get(_ context.Context, ticker string) (models.Quote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[ticker]
	return q, ok, nil
}

func (s *MemoryStore) GetAll(_ context.Context, tickers []string) (map[string]models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Quote, len(tickers))
	for _, t := range tickers {
		if q, ok := s.quotes[t]; ok {
			out[t] = q
		}
	}
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, q models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Ticker] = q
	return nil
}

func (s *MemoryStore) Tickers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.quotes))
	for t := range s.quotes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
