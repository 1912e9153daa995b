// Package poller drives the recurring quote refresh.
//
// The tracked ticker set is re-read from its source on every tick, so
// portfolio changes take effect on the next tick without a restart.
// Stopping does not cancel an in-flight fetch; a late completion still
// writes through the handlers, which is safe because quote snapshots are
// idempotent.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/models"
)

// State of the scheduler. Paused is entered automatically on quota
// exhaustion and is distinct from a user-initiated Stop.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Fetcher issues one batched quote fetch.
type Fetcher interface {
	Quotes(ctx context.Context, tickers []string) (map[string]models.Quote, map[string]*finnhub.APIError, error)
}

// TickerSource provides the currently tracked ticker set.
type TickerSource interface {
	Tickers(ctx context.Context) ([]string, error)
}

// QuoteHandler receives each refreshed quote. Handlers run in
// registration order per ticker: cache write first, then alert
// evaluation, then display/broadcast.
type QuoteHandler interface {
	HandleQuote(ctx context.Context, q models.Quote)
}

// QuoteHandlerFunc is a function adapter for QuoteHandler.
type QuoteHandlerFunc func(ctx context.Context, q models.Quote)

func (f QuoteHandlerFunc) HandleQuote(ctx context.Context, q models.Quote) {
	f(ctx, q)
}

// QuotaGate suppresses polling while the upstream budget is exhausted.
type QuotaGate interface {
	LimitReached() bool
	ResetTime() time.Time
}

type Config struct {
	Interval     time.Duration // default 30s
	FetchTimeout time.Duration // per-tick deadline, default 20s
}

type Poller struct {
	cfg      Config
	fetcher  Fetcher
	source   TickerSource
	gate     QuotaGate
	handlers []QuoteHandler

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
}

func New(cfg Config, fetcher Fetcher, source TickerSource, gate QuotaGate, handlers ...QuoteHandler) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	return &Poller{
		cfg:      cfg,
		fetcher:  fetcher,
		source:   source,
		gate:     gate,
		handlers: handlers,
		state:    StateStopped,
	}
}

// Start begins the recurring refresh. No-op when already running.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.state != StateStopped {
		p.mu.Unlock()
		return
	}
	p.state = StateRunning
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go func() {
		// First refresh immediately, then on the interval.
		p.tick()

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()

	fmt.Printf("[POLLER] Started (every %s)\n", p.cfg.Interval)
}

// Stop cancels the recurring refresh. No-op when already stopped. An
// in-flight fetch is left to complete.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return
	}
	close(p.stopCh)
	p.state = StateStopped
	fmt.Println("[POLLER] Stopped")
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RefreshNow runs one refresh outside the schedule.
func (p *Poller) RefreshNow() {
	p.tick()
}

func (p *Poller) tick() {
	if p.gate != nil && p.gate.LimitReached() {
		p.setPaused(true)
		return
	}
	p.setPaused(false)

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.FetchTimeout)
	defer cancel()

	tickers, err := p.source.Tickers(ctx)
	if err != nil {
		fmt.Printf("[POLLER] Ticker source error: %v\n", err)
		return
	}
	if len(tickers) == 0 {
		return
	}

	quotes, failures, err := p.fetcher.Quotes(ctx, tickers)
	if err != nil {
		fmt.Printf("[POLLER] Batch fetch halted: %v\n", err)
	}
	for ticker, ferr := range failures {
		fmt.Printf("[POLLER] %s: %v\n", ticker, ferr)
	}

	// Per ticker: cache write, then alerts, then broadcast, in handler
	// order. Cross-ticker order carries no guarantee.
	for _, q := range quotes {
		for _, h := range p.handlers {
			h.HandleQuote(ctx, q)
		}
	}
}

func (p *Poller) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case paused && p.state == StateRunning:
		p.state = StatePaused
		resume := ""
		if p.gate != nil {
			resume = fmt.Sprintf(", resuming around %s", p.gate.ResetTime().Format(time.Kitchen))
		}
		fmt.Printf("[POLLER] Paused: API quota exhausted%s\n", resume)
	case !paused && p.state == StatePaused:
		p.state = StateRunning
		fmt.Println("[POLLER] Resumed: API quota available again")
	}
}
