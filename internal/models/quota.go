package models

import "time"

// QuotaStatus mirrors the upstream API's rate-limit budget.
// used + remaining == limit holds on every locally produced snapshot;
// upstream-reported numbers are folded in best-effort.
type QuotaStatus struct {
	Used           int       `json:"used"`
	Limit          int       `json:"limit"`
	Remaining      int       `json:"remaining"`
	ResetTime      time.Time `json:"resetTime"`
	IsLimitReached bool      `json:"isLimitReached"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// UsagePercent is the consumed share of the budget, 0-100 (may exceed 100
// if upstream let calls through past the advertised limit).
func (q QuotaStatus) UsagePercent() float64 {
	if q.Limit <= 0 {
		return 0
	}
	return float64(q.Used) / float64(q.Limit) * 100
}
