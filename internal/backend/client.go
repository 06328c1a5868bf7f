package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	msgCircuitOpen = "The analysis service is temporarily unavailable. Please try again shortly."
	msgCanceled    = "Request canceled"
)

// Recorder receives one observation per backend call
type Recorder interface {
	RecordBackendRequest(ctx context.Context, operation string, status int, duration time.Duration, err error)
}

// Client is the typed REST client for the resume analysis backend
type Client struct {
	rc           *resty.Client
	breaker      *CircuitBreaker
	logger       *errors.Logger
	recorder     Recorder
	timeout      time.Duration
	matchTimeout time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithTransport replaces the instrumented default transport
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.rc.SetTransport(rt) }
}

// NewClient creates a backend client from configuration
func NewClient(cfg config.BackendConfig, logger *errors.Logger, opts ...Option) *Client {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "resumelens"
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetLogger(restyLogger{logger: logger}).
		SetDisableWarn(true)

	c := &Client{
		rc:           rc,
		breaker:      NewCircuitBreaker(cfg.CircuitBreaker, logger),
		logger:       logger,
		timeout:      cfg.Timeout,
		matchTimeout: cfg.MatchTimeout,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.matchTimeout <= 0 {
		c.matchTimeout = 45 * time.Second
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerStats exposes circuit breaker statistics for health and stats endpoints
func (c *Client) BreakerStats() map[string]any {
	return c.breaker.GetStats()
}

// BreakerHealthy reports whether calls are currently allowed through
func (c *Client) BreakerHealthy() bool {
	return c.breaker.IsHealthy()
}

type upload struct {
	field       string
	filename    string
	contentType string
	reader      io.Reader
}

type request struct {
	op      string
	method  string
	path    string
	token   string
	body    any
	query   map[string]string
	params  map[string]string
	headers map[string]string
	upload  *upload
	timeout time.Duration
}

// send performs one backend call. It never retries.
func (c *Client) send(ctx context.Context, r request) (*resty.Response, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		req := c.rc.R().SetContext(ctx)
		if r.token != "" {
			req.SetAuthToken(r.token)
		}
		if r.body != nil {
			req.SetBody(r.body)
		}
		if len(r.query) > 0 {
			req.SetQueryParams(r.query)
		}
		if len(r.params) > 0 {
			req.SetPathParams(r.params)
		}
		if len(r.headers) > 0 {
			req.SetHeaders(r.headers)
		}
		if r.upload != nil {
			req.SetMultipartField(r.upload.field, r.upload.filename, r.upload.contentType, r.upload.reader)
		}

		resp, err := req.Execute(r.method, r.path)
		if err != nil {
			return resp, transportError(ctx, err)
		}
		if resp.IsError() {
			return resp, statusError(resp)
		}
		return resp, nil
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		err = errors.NewNetworkError(errors.ErrCodeCircuitOpen, msgCircuitOpen, err)
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	duration := time.Since(start)

	c.logger.Debug("Backend request",
		"operation", r.op,
		"method", r.method,
		"path", r.path,
		"status", status,
		"duration_ms", duration.Milliseconds())
	if c.recorder != nil {
		c.recorder.RecordBackendRequest(ctx, r.op, status, duration, err)
	}

	if err != nil {
		switch {
		case errors.IsCanceled(err):
			c.logger.Debug("Backend request canceled", "operation", r.op, "path", r.path)
		case countsAsOutage(err):
			c.logger.LogError(err, "Backend request failed", "operation", r.op, "path", r.path)
		}
		return nil, err
	}
	return resp, nil
}

func transportError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return errors.NewNetworkError(errors.ErrCodeRequestCanceled, msgCanceled, err)
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, errors.MsgNoResponse, err)
	}
	return errors.NewNetworkError(errors.ErrCodeBackendUnavailable, errors.MsgNoResponse, err)
}

func statusError(resp *resty.Response) error {
	status := resp.StatusCode()
	detail := DetailMessage(resp.Body())

	if status == http.StatusUnauthorized {
		if detail == "" {
			detail = "Not authenticated"
		}
		return errors.NewAuthError(errors.ErrCodeUnauthorized, detail, nil)
	}

	if detail == "" {
		detail = fmt.Sprintf("Server error: %d", status)
	}
	return errors.NewBackendError(errors.ErrCodeBackendError, detail, status, nil)
}

func decodeFailure(op string, status int, cause error) error {
	return errors.NewBackendError(errors.ErrCodeDecodeFailed, "Unexpected response from server.", status, cause).
		WithContext("operation", op)
}

// restyLogger routes resty's internal messages into the structured logger
type restyLogger struct {
	logger *errors.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Warn("resty: " + fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn("resty: " + fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug("resty: " + fmt.Sprintf(format, v...))
}

// decodeJSON unmarshals a successful response body into T
func decodeJSON[T any](resp *resty.Response, op string) (*T, error) {
	var out T
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, decodeFailure(op, resp.StatusCode(), err)
	}
	return &out, nil
}
