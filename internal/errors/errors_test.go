package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewNetworkError(ErrCodeBackendUnavailable, MsgNoResponse, cause)

	assert.Equal(t, "BACKEND_UNAVAILABLE: "+MsgNoResponse+" (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := NewValidationError(ErrCodeInvalidRequest, "Please enter text and target role.", nil)
	assert.Equal(t, "INVALID_REQUEST: Please enter text and target role.", plain.Error())
}

func TestIsUnauthorized(t *testing.T) {
	wrapped := fmt.Errorf("loading profile: %w", NewAuthError(ErrCodeUnauthorized, "Not authenticated", nil))

	assert.True(t, IsUnauthorized(wrapped))
	assert.False(t, IsUnauthorized(NewBackendError(ErrCodeBackendError, "boom", 500, nil)))
	assert.False(t, IsUnauthorized(stderrors.New("plain")))
	assert.False(t, IsUnauthorized(nil))
}

func TestIsRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unauthorized", NewAuthError(ErrCodeUnauthorized, "Invalid refresh token", nil), true},
		{"bad request", NewBackendError(ErrCodeBackendError, "Refresh token revoked", 400, nil), true},
		{"server error", NewBackendError(ErrCodeBackendError, "boom", 502, nil), false},
		{"unreachable", NewNetworkError(ErrCodeBackendUnavailable, MsgNoResponse, nil), false},
		{"timeout", NewNetworkError(ErrCodeNetworkTimeout, MsgNoResponse, nil), false},
		{"circuit open", NewNetworkError(ErrCodeCircuitOpen, "open", nil), false},
		{"canceled", NewNetworkError(ErrCodeRequestCanceled, "Request canceled", nil), false},
		{"wrapped", fmt.Errorf("refresh: %w", NewAuthError(ErrCodeUnauthorized, "x", nil)), true},
		{"plain", stderrors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRejection(tt.err))
		})
	}
	assert.True(t, IsCanceled(NewNetworkError(ErrCodeRequestCanceled, "Request canceled", nil)))
	assert.False(t, IsCanceled(NewNetworkError(ErrCodeBackendUnavailable, MsgNoResponse, nil)))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError(ErrCodeInvalidRequest, "bad", nil), http.StatusBadRequest},
		{"too large", NewValidationError(ErrCodeFileTooLarge, "File too large", nil), http.StatusRequestEntityTooLarge},
		{"auth", NewAuthError(ErrCodeUnauthorized, "nope", nil), http.StatusUnauthorized},
		{"backend 404", NewBackendError(ErrCodeBackendError, "Analysis not found", 404, nil), http.StatusNotFound},
		{"backend 500", NewBackendError(ErrCodeBackendError, "boom", 500, nil), http.StatusBadGateway},
		{"circuit open", NewNetworkError(ErrCodeCircuitOpen, "open", nil), http.StatusServiceUnavailable},
		{"network", NewNetworkError(ErrCodeBackendUnavailable, MsgNoResponse, nil), http.StatusBadGateway},
		{"plain", stderrors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Email already registered", UserMessage(NewBackendError(ErrCodeBackendError, "Email already registered", 400, nil)))
	assert.Equal(t, "Something went wrong. Please try again.", UserMessage(stderrors.New("raw")))
}

func TestWithContext(t *testing.T) {
	err := NewIOError(ErrCodeFileNotFound, "File not found: a.pdf", nil).
		WithContext("file", "a.pdf").
		WithContext("size", 0)

	require.Len(t, err.Context, 2)
	assert.Equal(t, "a.pdf", err.Context["file"])
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := New(level)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	_, err := New("verbose")
	assert.EqualError(t, err, "invalid log level: verbose")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Info("x")
		logger.Debug("x")
		logger.Warn("x")
		logger.LogError(stderrors.New("x"), "x")
	})
}
