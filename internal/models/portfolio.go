package models

import "time"

// Stock is one portfolio holding, owned by a user.
type Stock struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Ticker    string    `json:"ticker"`
	BuyDate   time.Time `json:"buyDate"`
	BuyPrice  float64   `json:"buyPrice"`
	Quantity  float64   `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// CostBasis is what the position cost at purchase.
func (s Stock) CostBasis() float64 {
	return s.BuyPrice * s.Quantity
}
