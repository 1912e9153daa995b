package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stocktrack/backend/internal/analysis"
	"github.com/stocktrack/backend/internal/models"
)

type stockRequest struct {
	Ticker   string  `json:"ticker"`
	BuyDate  string  `json:"buyDate"`
	BuyPrice float64 `json:"buyPrice"`
	Quantity float64 `json:"quantity"`
}

func (req *stockRequest) toStock(userID string) (*models.Stock, string) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return nil, "ticker is required"
	}
	buyDate, err := time.Parse("2006-01-02", req.BuyDate)
	if err != nil {
		return nil, "buyDate must be YYYY-MM-DD"
	}
	if req.BuyPrice <= 0 {
		return nil, "buyPrice must be positive"
	}
	if req.Quantity <= 0 {
		return nil, "quantity must be positive"
	}
	return &models.Stock{
		UserID:   userID,
		Ticker:   ticker,
		BuyDate:  buyDate,
		BuyPrice: req.BuyPrice,
		Quantity: req.Quantity,
	}, ""
}

// holdingView is the dashboard row: the stored holding joined with its
// latest cached quote and the derived gain figures.
type holdingView struct {
	models.Stock
	CurrentPrice    float64 `json:"currentPrice"`
	Change          float64 `json:"change"`
	ChangePercent   float64 `json:"changePercent"`
	ChangeText      string  `json:"changeText"`
	Direction       string  `json:"direction"`
	Volume          float64 `json:"volume"`
	MarketValue     float64 `json:"marketValue"`
	GainLoss        float64 `json:"gainLoss"`
	GainLossPercent float64 `json:"gainLossPercent"`
	Stale           bool    `json:"stale"`
	HasQuote        bool    `json:"hasQuote"`
}

// buildHolding joins a holding with its quote. Without a quote the row
// carries only the stored fields; gain figures stay zero rather than
// pretending the position is flat at cost.
func buildHolding(s models.Stock, q models.Quote, ok bool, staleAfter time.Duration) holdingView {
	v := holdingView{Stock: s}
	if !ok {
		return v
	}

	v.HasQuote = true
	v.CurrentPrice = q.CurrentPrice
	v.Change = q.Change
	v.ChangePercent = q.ChangePercent
	v.ChangeText, v.Direction = formatChange(q.Change, q.ChangePercent)
	v.Volume = q.Volume
	v.Stale = q.Stale(staleAfter)

	v.MarketValue = q.CurrentPrice * s.Quantity
	cost := s.CostBasis()
	v.GainLoss = v.MarketValue - cost
	if cost > 0 {
		v.GainLossPercent = v.GainLoss / cost * 100
	}
	return v
}

// formatChange renders the day-change column, e.g. "+1.50 (0.80%)".
func formatChange(change, pct float64) (text, direction string) {
	switch {
	case change > 0:
		direction = "up"
	case change < 0:
		direction = "down"
	default:
		direction = "flat"
	}
	return fmt.Sprintf("%+.2f (%.2f%%)", change, pct), direction
}

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	stocks, err := s.deps.Stocks.ListByUser(r.Context(), user.ID)
	if err != nil {
		fmt.Printf("[API] Portfolio list error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}

	tickers := make([]string, 0, len(stocks))
	for _, st := range stocks {
		tickers = append(tickers, st.Ticker)
	}
	quotes, err := s.deps.Cache.GetAll(r.Context(), tickers)
	if err != nil {
		fmt.Printf("[API] Cache read error: %v\n", err)
		quotes = map[string]models.Quote{}
	}

	views := make([]holdingView, 0, len(stocks))
	var totalValue, totalCost float64
	for _, st := range stocks {
		q, ok := quotes[st.Ticker]
		v := buildHolding(st, q, ok, s.deps.StaleAfter)
		views = append(views, v)
		totalCost += st.CostBasis()
		if v.HasQuote {
			totalValue += v.MarketValue
		} else {
			totalValue += st.CostBasis()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"holdings":   views,
		"totalValue": totalValue,
		"totalCost":  totalCost,
	})
}

func (s *Server) handlePortfolioAdd(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	var req stockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	stock, msg := req.toStock(user.ID)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.deps.Stocks.Add(r.Context(), stock)
	if err != nil {
		fmt.Printf("[API] Portfolio add error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to add holding")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePortfolioUpdate(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id := r.PathValue("id")

	var req stockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	stock, msg := req.toStock(user.ID)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	stock.ID = id

	updated, err := s.deps.Stocks.Update(r.Context(), stock)
	if err != nil {
		fmt.Printf("[API] Portfolio update error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to update holding")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "holding not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePortfolioRemove(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id := r.PathValue("id")

	removed, err := s.deps.Stocks.Remove(r.Context(), id, user.ID)
	if err != nil {
		fmt.Printf("[API] Portfolio remove error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to remove holding")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "holding not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	stocks, err := s.deps.Stocks.ListByUser(r.Context(), user.ID)
	if err != nil {
		fmt.Printf("[API] Analysis error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}
	if len(stocks) == 0 {
		writeError(w, http.StatusBadRequest, "portfolio is empty")
		return
	}

	tickers := make([]string, 0, len(stocks))
	for _, st := range stocks {
		tickers = append(tickers, st.Ticker)
	}
	quotes, err := s.deps.Cache.GetAll(r.Context(), tickers)
	if err != nil {
		fmt.Printf("[API] Cache read error: %v\n", err)
		quotes = map[string]models.Quote{}
	}

	writeJSON(w, http.StatusOK, analysis.Portfolio(stocks, quotes))
}
