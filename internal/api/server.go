package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktrack/backend/internal/auth"
	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/hub"
	"github.com/stocktrack/backend/internal/models"
	"github.com/stocktrack/backend/internal/notifications"
	"github.com/stocktrack/backend/internal/quota"
	"github.com/stocktrack/backend/internal/quote"
	"github.com/stocktrack/backend/internal/repository"
)

const maxExportDays = 365

type ctxKey int

const userKey ctxKey = iota

// AlertStore is the alert persistence the handlers need. Satisfied by
// repository.AlertRepo.
type AlertStore interface {
	Add(ctx context.Context, a *models.PriceAlert) (*models.PriceAlert, error)
	Get(ctx context.Context, id, userID string) (*models.PriceAlert, error)
	ListByUser(ctx context.Context, userID string) ([]models.PriceAlert, error)
	Update(ctx context.Context, a *models.PriceAlert) (*models.PriceAlert, error)
	Remove(ctx context.Context, id, userID string) (bool, error)
}

// HistorySource is the recorded-snapshot log backing the export and the
// candle fallback. Satisfied by repository.QuoteHistoryRepo.
type HistorySource interface {
	Range(ctx context.Context, ticker string, from, to time.Time) ([]models.QuotePoint, error)
	Since(ctx context.Context, tickers []string, cutoff time.Time) ([]models.QuotePoint, error)
}

// Deps wires the server to the rest of the service. Everything is
// constructed in main and shared with the poll loop.
type Deps struct {
	Pool       *pgxpool.Pool
	Stocks     *repository.StockRepo
	Alerts     AlertStore
	History    HistorySource
	Auth       *auth.Service
	Finnhub    *finnhub.Client
	Cache      quote.Store
	Quota      *quota.Tracker
	Hub        *hub.Hub
	Notify     *notifications.Sender
	StaleAfter time.Duration
	ShowBanner bool
}

type Server struct {
	deps       Deps
	httpServer *http.Server
}

func NewServer(deps Deps, port int, corsOrigin string) *Server {
	if deps.StaleAfter <= 0 {
		deps.StaleAfter = time.Minute
	}
	s := &Server{deps: deps}

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	// Market data
	mux.HandleFunc("POST /api/finnhub/quotes", s.handleQuotes)
	mux.HandleFunc("POST /api/finnhub/candle", s.handleCandle)
	mux.HandleFunc("GET /api/finnhub/status", s.handleStatus)
	mux.HandleFunc("GET /api/finnhub/export", s.handleExport)
	mux.HandleFunc("GET /api/search", s.handleSearch)

	// Portfolio
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolioList)
	mux.HandleFunc("POST /api/portfolio", s.handlePortfolioAdd)
	mux.HandleFunc("PUT /api/portfolio/{id}", s.handlePortfolioUpdate)
	mux.HandleFunc("DELETE /api/portfolio/{id}", s.handlePortfolioRemove)
	mux.HandleFunc("GET /api/portfolio/analysis", s.handleAnalysis)

	// Alerts
	mux.HandleFunc("GET /api/alerts", s.handleAlertList)
	mux.HandleFunc("POST /api/alerts", s.handleAlertAdd)
	mux.HandleFunc("PUT /api/alerts/{id}", s.handleAlertUpdate)
	mux.HandleFunc("DELETE /api/alerts/{id}", s.handleAlertRemove)

	// Streaming
	mux.HandleFunc("GET /api/stream", s.handleStream)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.sessionMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

// sessionMiddleware resolves the bearer token to a user and stores it on
// the request context. Login, registration and the health check pass
// through; everything else requires a live session.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	open := map[string]bool{
		"/health":            true,
		"/api/auth/login":    true,
		"/api/auth/register": true,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if open[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			// Browsers cannot set headers on websocket dials.
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		user, err := s.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			fmt.Printf("[API] Session lookup error: %v\n", err)
			writeError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		return ""
	}
	return token
}

func userFrom(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

// --- validation helpers ---

func parseDays(r *http.Request, defaultDays int) int {
	v := r.URL.Query().Get("days")
	if v == "" {
		return defaultDays
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultDays
	}
	if n > maxExportDays {
		return maxExportDays
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
