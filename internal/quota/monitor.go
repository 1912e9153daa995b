package quota

import (
	"fmt"
	"sync"
	"time"
)

// Notifier is the side channel for user-facing quota warnings.
type Notifier interface {
	Notify(level, msg string)
}

// Monitor re-reads the tracker on a fixed interval, independent of the
// price poll, and raises a notification when the banner severity
// escalates. Crossing back below a tier resets the memory so the next
// escalation notifies again.
type Monitor struct {
	tracker  *Tracker
	notifier Notifier
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	lastTier string
}

func NewMonitor(tracker *Tracker, notifier Notifier, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		tracker:  tracker,
		notifier: notifier,
		interval: interval,
		lastTier: SeverityOK,
	}
}

func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				m.check()
			}
		}
	}()

	fmt.Printf("[QUOTA] Monitor started (every %s)\n", m.interval)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
	fmt.Println("[QUOTA] Monitor stopped")
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) check() {
	banner := m.tracker.Banner(false)

	m.mu.Lock()
	rank, last := tierRank(banner.Severity), tierRank(m.lastTier)
	// Blocking and unknown share the top rank but are different
	// situations; flipping between them still warrants a notification.
	notify := rank > last ||
		(rank == topTier && last == topTier && banner.Severity != m.lastTier)
	m.lastTier = banner.Severity
	m.mu.Unlock()

	if !notify {
		return
	}

	fmt.Printf("[QUOTA] %s: %s\n", banner.Severity, banner.Message)
	if m.notifier != nil {
		m.notifier.Notify(banner.Severity, banner.Message)
	}
}

const topTier = 3

func tierRank(severity string) int {
	switch severity {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityBlocking, SeverityUnknown:
		return topTier
	default:
		return 0
	}
}
