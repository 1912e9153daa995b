// Package analysis grades a portfolio's total return. The grading is a
// fixed rule table over the percentage return, same bands the original
// dashboard used.
package analysis

import (
	"github.com/stocktrack/backend/internal/models"
)

type Verdict struct {
	Rating        string  `json:"rating"`
	Summary       string  `json:"summary"`
	ReturnPercent float64 `json:"returnPercent"`
	Invested      float64 `json:"invested"`
	CurrentValue  float64 `json:"currentValue"`
}

// PortfolioReturn sums cost basis and current value over the holdings
// that have a cached quote. Holdings without a quote count at cost so a
// cold cache does not read as a loss.
func PortfolioReturn(stocks []models.Stock, quotes map[string]models.Quote) (invested, current float64) {
	for _, s := range stocks {
		cost := s.CostBasis()
		invested += cost
		if q, ok := quotes[s.Ticker]; ok {
			current += q.CurrentPrice * s.Quantity
		} else {
			current += cost
		}
	}
	return invested, current
}

// Evaluate runs the rule table on a percentage return.
func Evaluate(returnPct float64) Verdict {
	v := Verdict{ReturnPercent: returnPct}
	switch {
	case returnPct >= 15:
		v.Rating = "excellent"
		v.Summary = "Portfolio is well ahead of its cost basis. Consider taking partial profits."
	case returnPct >= 5:
		v.Rating = "good"
		v.Summary = "Portfolio is performing above its cost basis. Hold and review quarterly."
	case returnPct >= 0:
		v.Rating = "flat"
		v.Summary = "Portfolio is roughly at its cost basis. No action suggested."
	case returnPct >= -10:
		v.Rating = "caution"
		v.Summary = "Portfolio is below its cost basis. Review the weakest positions."
	default:
		v.Rating = "poor"
		v.Summary = "Portfolio is significantly below its cost basis. Consider rebalancing."
	}
	return v
}

// Portfolio combines both steps into the response the API serves.
func Portfolio(stocks []models.Stock, quotes map[string]models.Quote) Verdict {
	invested, current := PortfolioReturn(stocks, quotes)
	pct := 0.0
	if invested > 0 {
		pct = (current - invested) / invested * 100
	}
	v := Evaluate(pct)
	v.Invested = invested
	v.CurrentValue = current
	return v
}
