package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/models"
)

type candleRequest struct {
	Symbol     string `json:"symbol"`
	Resolution string `json:"resolution"`
	From       int64  `json:"from"`
	To         int64  `json:"to"`
}

type candleResponse struct {
	models.Candle
	Source string      `json:"source,omitempty"`
	Error  *ErrorState `json:"error,omitempty"`
}

// handleCandle proxies the OHLCV endpoint. Free-plan keys get 403 from
// the upstream candle API, so a plan restriction falls back to the quote
// history this service records on every poll; "no_data" passes through
// with a non-retryable error state.
func (s *Server) handleCandle(w http.ResponseWriter, r *http.Request) {
	var req candleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.Resolution == "" {
		req.Resolution = "D"
	}
	if req.To <= 0 {
		req.To = time.Now().Unix()
	}
	if req.From <= 0 || req.From >= req.To {
		writeError(w, http.StatusBadRequest, "from must be before to")
		return
	}

	candle, err := s.deps.Finnhub.Candles(r.Context(), req.Symbol, req.Resolution, req.From, req.To)
	if err == nil {
		writeJSON(w, http.StatusOK, candleResponse{Candle: candle, Source: "finnhub"})
		return
	}

	ae := finnhub.AsAPIError(err)
	switch ae.Condition {
	case finnhub.CondNoData:
		es := errorState(ae)
		if user := userFrom(r); user != nil {
			s.deps.Notify.Notify("INFO", fmt.Sprintf("No chart data available for %s in the requested range", req.Symbol))
		}
		writeJSON(w, http.StatusOK, candleResponse{Candle: candle, Source: "finnhub", Error: &es})
	case finnhub.CondPlanRestricted:
		s.candleFromHistory(w, r, req, ae)
	default:
		writeErrorState(w, ae)
	}
}

// candleFromHistory synthesizes a series from recorded poll snapshots.
// Each history row becomes one bar; far coarser than real OHLCV, but it
// keeps charts alive on plans without candle access.
func (s *Server) candleFromHistory(w http.ResponseWriter, r *http.Request, req candleRequest, ae *finnhub.APIError) {
	from := time.Unix(req.From, 0)
	to := time.Unix(req.To, 0)

	points, err := s.deps.History.Range(r.Context(), req.Symbol, from, to)
	if err != nil {
		fmt.Printf("[API] History fallback error for %s: %v\n", req.Symbol, err)
		writeErrorState(w, ae)
		return
	}
	if len(points) == 0 {
		writeErrorState(w, ae)
		return
	}

	candle := models.Candle{
		Status: "ok",
		T:      make([]int64, len(points)),
		O:      make([]float64, len(points)),
		H:      make([]float64, len(points)),
		L:      make([]float64, len(points)),
		C:      make([]float64, len(points)),
		V:      make([]float64, len(points)),
	}
	for i, p := range points {
		candle.T[i] = p.Timestamp.Unix()
		candle.O[i] = p.Price
		candle.H[i] = p.Price
		candle.L[i] = p.Price
		candle.C[i] = p.Price
		candle.V[i] = p.Volume
	}

	es := errorState(ae)
	writeJSON(w, http.StatusOK, candleResponse{Candle: candle, Source: "history", Error: &es})
}
