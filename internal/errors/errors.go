package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeBackend    ErrorType = "backend"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// MsgNoResponse is shown when the backend could not be reached at all.
const MsgNoResponse = "No response from server. Please check if backend is running."

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"status,omitempty"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

// NewBackendError records a non-2xx answer from the backend along with its status code.
func NewBackendError(code, message string, status int, cause error) *AppError {
	e := newAppError(ErrorTypeBackend, code, message, cause)
	e.Status = status
	return e
}

func NewAuthError(code, message string, cause error) *AppError {
	e := newAppError(ErrorTypeAuth, code, message, cause)
	e.Status = http.StatusUnauthorized
	return e
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err means the backend rejected the bearer token.
func IsUnauthorized(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeUnauthorized
}

// IsRejection reports whether the backend answered and refused the request,
// as opposed to being unreachable or failing with a 5xx.
func IsRejection(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case ErrorTypeAuth:
		return true
	case ErrorTypeBackend:
		return appErr.Status >= 400 && appErr.Status < 500
	default:
		return false
	}
}

// IsCanceled reports whether err comes from a caller that went away
func IsCanceled(err error) bool {
	return HasCode(err, ErrCodeRequestCanceled)
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// HTTPStatus maps an error to the status code the web layer answers with.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Type {
	case ErrorTypeValidation:
		if appErr.Code == ErrCodeFileTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypeBackend:
		if appErr.Status >= 400 && appErr.Status < 500 {
			return appErr.Status
		}
		return http.StatusBadGateway
	case ErrorTypeNetwork:
		if appErr.Code == ErrCodeCircuitOpen {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the inline, human readable message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return &Logger{logger: slog.New(handler)}
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	if l == nil {
		return
	}
	appErr, ok := As(err)
	if !ok {
		errText := "<nil>"
		if err != nil {
			errText = err.Error()
		}
		l.logger.Error(message, append([]any{"error", errText}, args...)...)
		return
	}

	logArgs := []any{
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"error_message", appErr.Message,
	}
	if appErr.Status != 0 {
		logArgs = append(logArgs, "status", appErr.Status)
	}
	if appErr.Cause != nil {
		logArgs = append(logArgs, "cause", appErr.Cause.Error())
	}
	for key, value := range appErr.Context {
		logArgs = append(logArgs, key, value)
	}
	logArgs = append(logArgs, args...)

	l.logger.Error(message, logArgs...)
}

func (l *Logger) Info(message string, args ...any) {
	if l != nil {
		l.logger.Info(message, args...)
	}
}

func (l *Logger) Debug(message string, args ...any) {
	if l != nil {
		l.logger.Debug(message, args...)
	}
}

func (l *Logger) Warn(message string, args ...any) {
	if l != nil {
		l.logger.Warn(message, args...)
	}
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeFileNotFound       = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable    = "FILE_NOT_READABLE"
	ErrCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrCodeInvalidFormat      = "INVALID_FORMAT"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidPDF         = "INVALID_PDF"
	ErrCodeNetworkTimeout     = "NETWORK_TIMEOUT"
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeBackendError       = "BACKEND_ERROR"
	ErrCodeDecodeFailed       = "DECODE_FAILED"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeCircuitOpen        = "CIRCUIT_OPEN"
	ErrCodeRequestCanceled    = "REQUEST_CANCELED"
)
