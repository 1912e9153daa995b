package api

import (
	"net/http"

	"github.com/stocktrack/backend/internal/finnhub"
)

// ErrorState is the failure shape served to clients for upstream market
// data problems. Type carries the condition so the UI can pick the right
// treatment (banner, upgrade hint, retry button).
type ErrorState struct {
	Message  string `json:"message"`
	Type     string `json:"type"`
	CanRetry bool   `json:"canRetry"`
	Details  string `json:"details,omitempty"`
}

func errorState(ae *finnhub.APIError) ErrorState {
	return ErrorState{
		Message:  ae.Message,
		Type:     string(ae.Condition),
		CanRetry: ae.Retryable(),
		Details:  ae.UpgradeHint,
	}
}

// statusFor maps an upstream condition to the status this server answers
// with. Upstream auth failures are our misconfiguration, not the
// client's, so they surface as a bad gateway rather than a 401.
func statusFor(cond finnhub.Condition) int {
	switch cond {
	case finnhub.CondQuotaExceeded:
		return http.StatusTooManyRequests
	case finnhub.CondPlanRestricted:
		return http.StatusForbidden
	case finnhub.CondAuthFailure, finnhub.CondTransient, finnhub.CondMalformed:
		return http.StatusBadGateway
	case finnhub.CondNetwork:
		return http.StatusServiceUnavailable
	case finnhub.CondNoData:
		return http.StatusOK
	default:
		return http.StatusBadRequest
	}
}

func writeErrorState(w http.ResponseWriter, ae *finnhub.APIError) {
	writeJSON(w, statusFor(ae.Condition), map[string]any{
		"success": false,
		"error":   errorState(ae),
	})
}
