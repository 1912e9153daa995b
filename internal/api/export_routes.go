package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stocktrack/backend/internal/export"
)

// handleExport downloads the caller's recorded quote history as CSV or
// PDF. Scope is the user's own holdings; days defaults to 30 and is
// capped at a year.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		writeError(w, http.StatusBadRequest, "format must be csv or pdf")
		return
	}
	days := parseDays(r, 30)

	stocks, err := s.deps.Stocks.ListByUser(r.Context(), user.ID)
	if err != nil {
		fmt.Printf("[API] Export error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}
	tickers := make([]string, 0, len(stocks))
	seen := make(map[string]bool)
	for _, st := range stocks {
		if !seen[st.Ticker] {
			seen[st.Ticker] = true
			tickers = append(tickers, st.Ticker)
		}
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	points, err := s.deps.History.Since(r.Context(), tickers, cutoff)
	if err != nil {
		fmt.Printf("[API] Export history error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to load quote history")
		return
	}

	filename := fmt.Sprintf("quote-history-%s.%s", time.Now().Format("2006-01-02"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteCSV(w, points)
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		err = export.WritePDF(w, points, days)
	}
	if err != nil {
		// Headers are out; all we can do is log.
		fmt.Printf("[API] Export write error: %v\n", err)
	}
}
