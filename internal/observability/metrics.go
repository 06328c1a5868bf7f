package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricResumeAnalyzed   = "resume_analyzed"
	MetricJobMatched       = "job_matched"
	MetricJobsSearched     = "jobs_searched"
	MetricResumeRewritten  = "resume_rewritten"
	MetricReportDownloaded = "report_downloaded"
	MetricLogin            = "login"
	MetricRegistration     = "registration"
)

// Metrics holds all custom metrics. Every method is a no-op on instruments
// that were never created, so the zero value is safe to use.
type Metrics struct {
	// Backend API metrics
	BackendRequests metric.Int64Counter
	BackendDuration metric.Float64Histogram
	BackendErrors   metric.Int64Counter

	// Business metrics
	ResumesAnalyzed   metric.Int64Counter
	JobsMatched       metric.Int64Counter
	JobsSearched      metric.Int64Counter
	ResumesRewritten  metric.Int64Counter
	ReportsDownloaded metric.Int64Counter
	Logins            metric.Int64Counter
	Registrations     metric.Int64Counter

	// Session metrics
	SessionsRefreshed metric.Int64Counter

	// Certificate metrics
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

type counterSpec struct {
	target      *metric.Int64Counter
	name        string
	description string
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	counters := []counterSpec{
		{&m.BackendRequests, "resumelens_backend_requests_total", "Total number of backend API requests"},
		{&m.BackendErrors, "resumelens_backend_errors_total", "Total number of failed backend API requests"},
		{&m.ResumesAnalyzed, "resumelens_resumes_analyzed_total", "Total number of resumes analyzed"},
		{&m.JobsMatched, "resumelens_jobs_matched_total", "Total number of job matches"},
		{&m.JobsSearched, "resumelens_jobs_searched_total", "Total number of job searches"},
		{&m.ResumesRewritten, "resumelens_resumes_rewritten_total", "Total number of resume rewrites"},
		{&m.ReportsDownloaded, "resumelens_reports_downloaded_total", "Total number of PDF reports downloaded"},
		{&m.Logins, "resumelens_logins_total", "Total number of login attempts"},
		{&m.Registrations, "resumelens_registrations_total", "Total number of registration attempts"},
		{&m.SessionsRefreshed, "resumelens_sessions_refreshed_total", "Total number of session token refreshes"},
		{&m.CertReloadCount, "resumelens_cert_reloads_total", "Total number of certificate reloads"},
		{&m.RateLimitHits, "resumelens_rate_limit_hits_total", "Total number of rate limit hits"},
	}

	var err error
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	m.BackendDuration, err = meter.Float64Histogram(
		"resumelens_backend_request_duration_seconds",
		metric.WithDescription("Time spent waiting for the backend API"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend duration metric: %w", err)
	}

	m.CertExpiryTime, err = meter.Float64Gauge(
		"resumelens_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	return m, nil
}

// RecordBackendRequest records one backend call; status is 0 when no response arrived
func (m *Metrics) RecordBackendRequest(ctx context.Context, operation string, status int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", statusLabel(status)),
	)

	if m.BackendRequests != nil {
		m.BackendRequests.Add(ctx, 1, attrs)
	}
	if m.BackendDuration != nil {
		m.BackendDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.BackendErrors != nil {
		m.BackendErrors.Add(ctx, 1, attrs)
	}
}

func statusLabel(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

// RecordSessionRefresh counts a background or on-demand token refresh
func (m *Metrics) RecordSessionRefresh(ctx context.Context, success bool) {
	if m.SessionsRefreshed != nil {
		m.SessionsRefreshed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

// RecordRateLimitHit counts a request rejected by the limiter; keyType is "ip" or "session"
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType, route string) {
	if m.RateLimitHits != nil {
		m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(
			attribute.String("key_type", keyType),
			attribute.String("route", route),
		))
	}
}

// RecordBusinessMetric records business-specific metrics
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	counter := m.businessCounter(metricType)
	if counter == nil {
		return
	}

	attrs := append([]attribute.KeyValue{
		attribute.Bool("success", success),
	}, attributes...)
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) businessCounter(metricType string) metric.Int64Counter {
	switch metricType {
	case MetricResumeAnalyzed:
		return m.ResumesAnalyzed
	case MetricJobMatched:
		return m.JobsMatched
	case MetricJobsSearched:
		return m.JobsSearched
	case MetricResumeRewritten:
		return m.ResumesRewritten
	case MetricReportDownloaded:
		return m.ReportsDownloaded
	case MetricLogin:
		return m.Logins
	case MetricRegistration:
		return m.Registrations
	}
	return nil
}

// RecordCertReload counts a certificate reload attempt
func (m *Metrics) RecordCertReload(ctx context.Context, certType string, success bool) {
	if m.CertReloadCount != nil {
		m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cert_type", certType),
			attribute.Bool("success", success),
		))
	}
}

// RecordCertExpiry publishes the seconds left before a certificate expires
func (m *Metrics) RecordCertExpiry(ctx context.Context, certType string, expiry time.Time) {
	if m.CertExpiryTime != nil && !expiry.IsZero() {
		m.CertExpiryTime.Record(ctx, time.Until(expiry).Seconds(),
			metric.WithAttributes(attribute.String("cert_type", certType)))
	}
}
