package backend

import (
	"context"
	stderrors "errors"

	"resumelens/internal/config"
	"resumelens/internal/errors"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards calls to the backend API.
// A nil *CircuitBreaker runs every call directly.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*resty.Response]
}

// NewCircuitBreaker returns nil when the breaker is disabled
func NewCircuitBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "backend-api",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		// Client errors (4xx, 401) mean the backend is alive
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsOutage(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[*resty.Response](settings)}
}

// countsAsOutage reports whether err is a transport failure or a 5xx answer.
// Calls abandoned by the caller say nothing about the backend.
func countsAsOutage(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	appErr, ok := errors.As(err)
	if !ok {
		return true
	}
	switch appErr.Type {
	case errors.ErrorTypeNetwork:
		return appErr.Code != errors.ErrCodeRequestCanceled
	case errors.ErrorTypeBackend:
		return appErr.Status >= 500
	default:
		return false
	}
}

// Execute runs fn under breaker protection
func (cb *CircuitBreaker) Execute(fn func() (*resty.Response, error)) (*resty.Response, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}

	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (cb *CircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}
