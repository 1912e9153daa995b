package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	FinnhubAPIKey  string
	WebhookURL     string
	AppName        string
	CORSAllowOrigin string

	// HTTP
	APIPort int

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Cache
	RedisAddr     string // empty means in-process memory cache
	RedisPassword string
	RedisDB       int

	// Market data
	FinnhubBaseURL      string
	PollIntervalSeconds int
	QuoteStaleSeconds   int

	// Quota
	QuotaLimit            int
	QuotaWindowMinutes    int
	QuotaPollSeconds      int
	ShowQuotaBannerAlways bool

	// Alerts / sessions
	AlertDedupMinutes int
	SessionTTLHours   int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		FinnhubAPIKey:   envStr("FINNHUB_API_KEY", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		AppName:         envStr("APP_NAME", "StockTrack"),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		APIPort: envInt("API_PORT", 3001),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "stocktrack"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		FinnhubBaseURL:      envStr("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		PollIntervalSeconds: envInt("POLL_INTERVAL_SECONDS", 30),
		QuoteStaleSeconds:   envInt("QUOTE_STALE_SECONDS", 60),

		QuotaLimit:            envInt("QUOTA_LIMIT", 1000),
		QuotaWindowMinutes:    envInt("QUOTA_WINDOW_MINUTES", 1440),
		QuotaPollSeconds:      envInt("QUOTA_POLL_SECONDS", 30),
		ShowQuotaBannerAlways: envBool("SHOW_QUOTA_BANNER_ALWAYS", false),

		AlertDedupMinutes: envInt("ALERT_DEDUP_MINUTES", 5),
		SessionTTLHours:   envInt("SESSION_TTL_HOURS", 72),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.FinnhubAPIKey == "" {
		errs = append(errs, "FINNHUB_API_KEY is required")
	}
	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.PollIntervalSeconds < 5 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be at least 5")
	}
	if c.QuotaLimit <= 0 {
		errs = append(errs, "QUOTA_LIMIT must be positive")
	}
	if c.WebhookURL == "" {
		fmt.Println("[WARN] WEBHOOK_URL not set, alert notifications will only be logged")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== StockTrack Server Configuration ===")
	fmt.Printf("API port: %d\n", c.APIPort)
	fmt.Printf("Database: %s:%d/%s\n", c.DBHost, c.DBPort, c.DBName)
	if c.RedisAddr != "" {
		fmt.Printf("Quote cache: redis (%s)\n", c.RedisAddr)
	} else {
		fmt.Println("Quote cache: in-process memory")
	}
	fmt.Println("--------------------------------------")
	fmt.Printf("Poll interval: %ds\n", c.PollIntervalSeconds)
	fmt.Printf("Quote staleness window: %ds\n", c.QuoteStaleSeconds)
	fmt.Printf("Quota budget: %d calls / %dm\n", c.QuotaLimit, c.QuotaWindowMinutes)
	fmt.Printf("Quota monitor interval: %ds\n", c.QuotaPollSeconds)
	fmt.Println("--------------------------------------")
	fmt.Printf("Alert dedup window: %dm\n", c.AlertDedupMinutes)
	fmt.Printf("Session TTL: %dh\n", c.SessionTTLHours)
	fmt.Printf("Notifications: %v\n", c.WebhookURL != "")
	fmt.Println("=======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- env helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
