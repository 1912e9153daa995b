// Package quota mirrors the upstream API's rate-limit budget.
//
// The mirror is fed from two sides: every completed upstream call charges
// one unit, and the X-Ratelimit headers on upstream responses overwrite
// the local count (upstream's numbers win, the invariant
// used + remaining == limit is re-derived from them). The tracker never
// blocks a caller; it only answers "how much budget is left" and gates
// the poll scheduler.
package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/stocktrack/backend/internal/models"
)

// Severity tiers for the status banner, escalating with usage.
const (
	SeverityOK       = "ok"
	SeverityInfo     = "info"
	SeverityWarning  = "warning-high"
	SeverityBlocking = "blocking"
	SeverityUnknown  = "unknown"
)

// Banner is the visibility directive served to clients.
type Banner struct {
	Visible  bool   `json:"visible"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type Tracker struct {
	mu          sync.Mutex
	limit       int
	used        int
	window      time.Duration
	resetTime   time.Time
	lastUpdated time.Time
	unreachable bool
	lastErr     error
}

// NewTracker creates a mirror for a budget of limit calls per window.
func NewTracker(limit int, window time.Duration) *Tracker {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Tracker{
		limit:     limit,
		window:    window,
		resetTime: time.Now().Add(window),
	}
}

// RecordCall charges one unit. Called for every completed upstream
// exchange, including non-2xx responses (the provider bills those too).
func (t *Tracker) RecordCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(time.Now())
	t.used++
	t.lastUpdated = time.Now()
	t.unreachable = false
	t.lastErr = nil
}

// FoldHeaders overwrites the local count with upstream-reported numbers.
func (t *Tracker) FoldHeaders(remaining, limit int, reset time.Time) {
	if limit <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limit = limit
	used := limit - remaining
	if used < 0 {
		used = 0
	}
	t.used = used
	if !reset.IsZero() {
		t.resetTime = reset
	}
	t.lastUpdated = time.Now()
	t.unreachable = false
	t.lastErr = nil
}

// MarkUnreachable flags the mirror as unknown after a transport-level
// failure. The banner then says so explicitly instead of pretending the
// budget is healthy.
func (t *Tracker) MarkUnreachable(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unreachable = true
	t.lastErr = err
	t.lastUpdated = time.Now()
}

// Status returns the current mirror snapshot, rolling the window over if
// resetTime has passed.
func (t *Tracker) Status() models.QuotaStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(time.Now())

	remaining := t.limit - t.used
	if remaining < 0 {
		remaining = 0
	}
	return models.QuotaStatus{
		Used:           t.used,
		Limit:          t.limit,
		Remaining:      remaining,
		ResetTime:      t.resetTime,
		IsLimitReached: t.used >= t.limit,
		LastUpdated:    t.lastUpdated,
	}
}

// LimitReached reports whether the budget is exhausted. The poll
// scheduler pauses on true and resumes after ResetTime.
func (t *Tracker) LimitReached() bool {
	return t.Status().IsLimitReached
}

func (t *Tracker) ResetTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resetTime
}

// Unknown reports whether the last upstream exchange failed at the
// transport level, leaving the mirror's numbers unverified.
func (t *Tracker) Unknown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unreachable
}

// Banner computes the visibility directive. Hidden below 80% usage unless
// showAlways; escalates at 80 (info), 90 (warning-high) and 100
// (blocking). An unreachable mirror always shows an "unknown" banner.
func (t *Tracker) Banner(showAlways bool) Banner {
	if t.Unknown() {
		return Banner{
			Visible:  true,
			Severity: SeverityUnknown,
			Message:  "API quota status unavailable; remaining budget unknown",
		}
	}

	st := t.Status()
	pct := st.UsagePercent()

	switch {
	case pct >= 100:
		return Banner{
			Visible:  true,
			Severity: SeverityBlocking,
			Message: fmt.Sprintf("API limit reached (%d/%d); serving cached data until %s",
				st.Used, st.Limit, st.ResetTime.Format(time.Kitchen)),
		}
	case pct >= 90:
		return Banner{
			Visible:  true,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("API quota nearly exhausted: %d calls remaining", st.Remaining),
		}
	case pct >= 80:
		return Banner{
			Visible:  true,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("API quota at %.0f%%: %d of %d calls used", pct, st.Used, st.Limit),
		}
	default:
		return Banner{
			Visible:  showAlways,
			Severity: SeverityOK,
			Message:  fmt.Sprintf("%d of %d API calls used", st.Used, st.Limit),
		}
	}
}

// rollover resets the window once resetTime passes. Advances in whole
// windows so a long idle period lands the next reset in the future.
// Caller holds t.mu.
func (t *Tracker) rollover(now time.Time) {
	if t.resetTime.IsZero() {
		t.resetTime = now.Add(t.window)
		return
	}
	if now.Before(t.resetTime) {
		return
	}
	t.used = 0
	for !t.resetTime.After(now) {
		t.resetTime = t.resetTime.Add(t.window)
	}
}
