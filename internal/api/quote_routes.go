package api

import (
	"fmt"
	"net/http"

	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/models"
	"github.com/stocktrack/backend/internal/quota"
)

type quotesRequest struct {
	Tickers []string `json:"tickers"`
}

type quotesResponse struct {
	Success bool                    `json:"success"`
	Data    map[string]models.Quote `json:"data"`
	Stale   map[string]bool         `json:"stale,omitempty"`
	Errors  map[string]ErrorState   `json:"errors,omitempty"`
	Error   *ErrorState             `json:"error,omitempty"`
}

// handleQuotes serves snapshots for the requested tickers, cache first.
// Only tickers with no fresh snapshot go upstream. When the quota is
// exhausted the response degrades to whatever the cache still holds, with
// the error attached so the client can show the banner.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var req quotesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	unique := finnhub.NormalizeTickers(req.Tickers)
	if len(unique) == 0 {
		writeError(w, http.StatusBadRequest, "no tickers provided")
		return
	}

	ctx := r.Context()
	cached, err := s.deps.Cache.GetAll(ctx, unique)
	if err != nil {
		fmt.Printf("[API] Cache read error: %v\n", err)
		cached = map[string]models.Quote{}
	}

	var misses []string
	for _, t := range unique {
		q, ok := cached[t]
		if !ok || q.Stale(s.deps.StaleAfter) {
			misses = append(misses, t)
		}
	}

	resp := quotesResponse{Success: true, Data: make(map[string]models.Quote, len(unique))}
	for t, q := range cached {
		resp.Data[t] = q
	}

	if len(misses) > 0 {
		fetched, failures, fetchErr := s.deps.Finnhub.Quotes(ctx, misses)
		for t, q := range fetched {
			resp.Data[t] = q
			if err := s.deps.Cache.Put(ctx, q); err != nil {
				fmt.Printf("[API] Cache write error for %s: %v\n", t, err)
			}
		}
		for t, fe := range failures {
			if resp.Errors == nil {
				resp.Errors = make(map[string]ErrorState)
			}
			resp.Errors[t] = errorState(fe)
		}
		if fetchErr != nil {
			ae := finnhub.AsAPIError(fetchErr)
			es := errorState(ae)
			resp.Error = &es
			if ae.Condition != finnhub.CondQuotaExceeded || len(resp.Data) == 0 {
				// Nothing worth degrading to; answer with the error status.
				resp.Success = false
				writeJSON(w, statusFor(ae.Condition), resp)
				return
			}
			// Quota exhausted: serve the cached snapshots we still have.
		}
	}

	resp.Stale = make(map[string]bool, len(resp.Data))
	for t, q := range resp.Data {
		resp.Stale[t] = q.Stale(s.deps.StaleAfter)
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusResponse struct {
	Quota  models.QuotaStatus `json:"quota"`
	Banner quota.Banner       `json:"banner"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Quota:  s.deps.Quota.Status(),
		Banner: s.deps.Quota.Banner(s.deps.ShowBanner),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	matches, err := s.deps.Finnhub.Search(r.Context(), query)
	if err != nil {
		writeErrorState(w, finnhub.AsAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(matches),
		"result":  matches,
	})
}
