// Package alert evaluates user price thresholds against refreshed quotes.
//
// The evaluator is level-triggered: it re-matches on every refresh while
// the condition holds and keeps no memory of having fired. Collapsing
// repeats into a single user-visible notification is the notification
// layer's job.
package alert

import (
	"context"
	"fmt"

	"github.com/stocktrack/backend/internal/models"
)

// Trigger directions.
const (
	DirectionUpper = "upper"
	DirectionLower = "lower"
)

// Source lists the active alerts for a ticker.
type Source interface {
	ActiveByTicker(ctx context.Context, ticker string) ([]models.PriceAlert, error)
}

// Notifier is the side channel alerts fire into.
type Notifier interface {
	NotifyAlert(a models.PriceAlert, q models.Quote, direction string)
}

// Triggered reports whether price matches the alert, and in which
// direction. Boundaries are inclusive: price == threshold fires.
func Triggered(a models.PriceAlert, price float64) (bool, string) {
	if a.UpperThreshold != nil && price >= *a.UpperThreshold {
		return true, DirectionUpper
	}
	if a.LowerThreshold != nil && price <= *a.LowerThreshold {
		return true, DirectionLower
	}
	return false, ""
}

type Evaluator struct {
	source   Source
	notifier Notifier
}

func NewEvaluator(source Source, notifier Notifier) *Evaluator {
	return &Evaluator{source: source, notifier: notifier}
}

// HandleQuote checks every active alert on the refreshed ticker. Runs
// after the cache write in the poll pipeline; reads alerts, mutates
// nothing.
func (e *Evaluator) HandleQuote(ctx context.Context, q models.Quote) {
	alerts, err := e.source.ActiveByTicker(ctx, q.Ticker)
	if err != nil {
		fmt.Printf("[ALERT] Could not load alerts for %s: %v\n", q.Ticker, err)
		return
	}

	for _, a := range alerts {
		if fired, direction := Triggered(a, q.CurrentPrice); fired {
			e.notifier.NotifyAlert(a, q, direction)
		}
	}
}
