package models

import "time"

// PriceAlert is a user-defined threshold on a ticker. Either threshold may
// be nil. Alerts are level-triggered: they match on every evaluation while
// the condition holds, and carry no memory of having fired.
type PriceAlert struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Ticker         string    `json:"ticker"`
	UpperThreshold *float64  `json:"upperThreshold,omitempty"`
	LowerThreshold *float64  `json:"lowerThreshold,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}
