package finnhub

import (
	"errors"
	"fmt"
	"net/http"
)

// Condition classifies an upstream failure. The API layer maps conditions
// onto the error payload it returns to clients; the poller and retry logic
// use them to decide whether another attempt can help.
type Condition string

const (
	CondQuotaExceeded  Condition = "quota_exceeded"
	CondPlanRestricted Condition = "plan_restricted"
	CondAuthFailure    Condition = "auth_failure"
	CondTransient      Condition = "transient"
	CondNetwork        Condition = "network_failure"
	CondNoData         Condition = "no_data"
	CondMalformed      Condition = "malformed_response"
	CondGeneric        Condition = "generic"
)

// APIError is a classified upstream failure.
type APIError struct {
	Condition   Condition
	Status      int
	Message     string
	UpgradeHint string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("finnhub: %s (HTTP %d): %s", e.Condition, e.Status, e.Message)
	}
	return fmt.Sprintf("finnhub: %s: %s", e.Condition, e.Message)
}

// Retryable reports whether another attempt with the same inputs can
// succeed. Quota, plan and auth failures need operator action, not retries.
func (e *APIError) Retryable() bool {
	return e.Condition == CondTransient || e.Condition == CondNetwork
}

// Classify maps an HTTP status onto a condition. Used uniformly by the
// quote, candle and search paths.
func Classify(status int) Condition {
	switch {
	case status == http.StatusTooManyRequests:
		return CondQuotaExceeded
	case status == http.StatusForbidden:
		return CondPlanRestricted
	case status == http.StatusUnauthorized:
		return CondAuthFailure
	case status >= 500:
		return CondTransient
	default:
		return CondGeneric
	}
}

func statusError(status int, msg string) *APIError {
	e := &APIError{Condition: Classify(status), Status: status, Message: msg}
	if e.Condition == CondPlanRestricted {
		e.UpgradeHint = "this endpoint requires a paid Finnhub plan"
	}
	return e
}

// AsAPIError unwraps err into an *APIError, or wraps it as a network
// failure when it is some other transport-level error.
func AsAPIError(err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	return &APIError{Condition: CondNetwork, Message: err.Error()}
}
