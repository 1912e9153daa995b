package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stocktrack/backend/internal/alert"
	"github.com/stocktrack/backend/internal/api"
	"github.com/stocktrack/backend/internal/auth"
	"github.com/stocktrack/backend/internal/config"
	"github.com/stocktrack/backend/internal/db"
	"github.com/stocktrack/backend/internal/finnhub"
	"github.com/stocktrack/backend/internal/hub"
	"github.com/stocktrack/backend/internal/models"
	"github.com/stocktrack/backend/internal/notifications"
	"github.com/stocktrack/backend/internal/poller"
	"github.com/stocktrack/backend/internal/quota"
	"github.com/stocktrack/backend/internal/quote"
	"github.com/stocktrack/backend/internal/repository"
)

const banner = `
╔══════════════════════════════════════╗
║      StockTrack Server v1.0          ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	stockRepo := repository.NewStockRepo(pool)
	alertRepo := repository.NewAlertRepo(pool)
	historyRepo := repository.NewQuoteHistoryRepo(pool)
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)

	// Quota mirror + Finnhub client
	tracker := quota.NewTracker(cfg.QuotaLimit, time.Duration(cfg.QuotaWindowMinutes)*time.Minute)
	fh := finnhub.NewClient(cfg.FinnhubAPIKey, tracker, finnhub.Options{
		BaseURL: cfg.FinnhubBaseURL,
	})

	// Quote cache: Redis when configured, in-process memory otherwise
	var store quote.Store
	if cfg.RedisAddr != "" {
		store = quote.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}))
	} else {
		store = quote.NewMemoryStore()
	}

	// Notifications + alert evaluation + websocket fan-out
	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName,
		time.Duration(cfg.AlertDedupMinutes)*time.Minute)
	evaluator := alert.NewEvaluator(alertRepo, notify)
	stream := hub.New()

	// Poll pipeline: cache write, history record, alert evaluation,
	// broadcast. Order matters; readers must see the cache write first.
	poll := poller.New(
		poller.Config{Interval: time.Duration(cfg.PollIntervalSeconds) * time.Second},
		fh,
		stockRepo,
		tracker,
		poller.QuoteHandlerFunc(func(ctx context.Context, q models.Quote) {
			if err := store.Put(ctx, q); err != nil {
				fmt.Printf("[CACHE] Write error for %s: %v\n", q.Ticker, err)
			}
		}),
		poller.QuoteHandlerFunc(func(ctx context.Context, q models.Quote) {
			if err := historyRepo.Record(ctx, q); err != nil {
				fmt.Printf("[HISTORY] Record error for %s: %v\n", q.Ticker, err)
			}
		}),
		evaluator,
		stream,
	)

	monitor := quota.NewMonitor(tracker, notify, time.Duration(cfg.QuotaPollSeconds)*time.Second)

	// Auth
	authService := auth.NewService(userRepo, sessionRepo, time.Duration(cfg.SessionTTLHours)*time.Hour)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(api.Deps{
		Pool:       pool,
		Stocks:     stockRepo,
		Alerts:     alertRepo,
		History:    historyRepo,
		Auth:       authService,
		Finnhub:    fh,
		Cache:      store,
		Quota:      tracker,
		Hub:        stream,
		Notify:     notify,
		StaleAfter: time.Duration(cfg.QuoteStaleSeconds) * time.Second,
		ShowBanner: cfg.ShowQuotaBannerAlways,
	}, cfg.APIPort, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Price poll loop
	poll.Start()

	// 3. Quota monitor
	monitor.Start()

	// Expired sessions pile up otherwise; sweep hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := sessionRepo.DeleteExpired(context.Background()); err == nil && n > 0 {
					fmt.Printf("[AUTH] Swept %d expired sessions\n", n)
				}
			}
		}
	}()

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	monitor.Stop()
	poll.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
