package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stocktrack/backend/internal/httputil"
	"github.com/stocktrack/backend/internal/models"
)

// Sender delivers user-facing notifications to a webhook (Slack- or
// Discord-shaped payloads, picked by URL). Alert notifications pass
// through a de-dup window so a level-triggered alert that matches on
// every poll collapses to one message per window.
type Sender struct {
	webhookURL string
	appName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	dedup      *Deduper
}

func NewSender(webhookURL, appName string, dedupWindow time.Duration) *Sender {
	if appName == "" {
		appName = "StockTrack"
	}
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	return &Sender{
		webhookURL: webhookURL,
		appName:    appName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
		dedup: NewDeduper(dedupWindow),
	}
}

// Notify sends a leveled message (INFO, warning-high, blocking, ...).
func (s *Sender) Notify(level, msg string) {
	s.Send(fmt.Sprintf("[%s] %s", strings.ToUpper(level), msg))
}

// NotifyAlert delivers a threshold-crossing notification. Keyed by alert
// id and direction: while the condition keeps holding, only the first
// match in each window goes out.
func (s *Sender) NotifyAlert(a models.PriceAlert, q models.Quote, direction string) {
	key := a.ID + ":" + direction
	if !s.dedup.Allow(key) {
		return
	}

	var msg string
	switch direction {
	case "upper":
		msg = fmt.Sprintf("%s rose to $%.2f, at or above your $%.2f alert", q.Ticker, q.CurrentPrice, *a.UpperThreshold)
	case "lower":
		msg = fmt.Sprintf("%s fell to $%.2f, at or below your $%.2f alert", q.Ticker, q.CurrentPrice, *a.LowerThreshold)
	default:
		msg = fmt.Sprintf("%s triggered an alert at $%.2f", q.Ticker, q.CurrentPrice)
	}
	s.Send(msg)
}

// Send logs the message and posts it to the webhook when one is
// configured.
func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.appName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.webhookURL == "" {
		return
	}

	payload := s.formatPayload(formatted)
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("[NOTIFY ERROR] marshal: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[NOTIFY ERROR] Failed to send notification after retries: %v\n", err)
		return
	}
	resp.Body.Close()
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.appName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.appName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
