package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"resumelens/internal/backend"
	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/observability"
	"resumelens/internal/session"
)

// multipartOverhead is added to the upload limit for form boundaries and headers
const multipartOverhead = 64 * 1024

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration and dependencies of the web front end
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate management
	CertificateManager *CertificateManager

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Upload limits; MaxRequestSize bounds the whole request body
	MaxFileSize    int64
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Backend       *backend.Client
	Sessions      *session.Manager
	Refresher     *session.Refresher
	Observability *observability.ObservabilityManager

	pages    *pageRenderer
	rewrites *rewriteCache

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host         string
	Port         string
	Version      string
	TLSConfig    config.TLSConfig
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxFileSize  int64
	RateLimit    *config.RateLimitConfig
}

// NewServerConfig derives the server settings from the application configuration
func NewServerConfig(appCfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:         appCfg.Server.Host,
		Port:         appCfg.Server.Port,
		Version:      version,
		TLSConfig:    appCfg.Server.TLS,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
		MaxFileSize:  appCfg.App.MaxFileSize,
		RateLimit:    &appCfg.Server.RateLimit,
	}
}

// NewServer wires the backend client, session store and templates.
// A nil om runs the server without telemetry.
func NewServer(appCfg *config.Config, cfg ServerConfig, om *observability.ObservabilityManager, logger *errors.Logger) (*Server, error) {
	if om == nil {
		var err error
		om, err = observability.NewObservabilityManager(observability.GetObservabilityConfig(nil, cfg.Version), appCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize observability: %w", err)
		}
	}
	metrics := om.GetMetrics()

	pages, err := newPageRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	store, err := session.NewStore(appCfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	client := backend.NewClient(appCfg.Backend, logger, backend.WithRecorder(metrics))
	refresher := session.NewRefresher(store, client, appCfg.Session.RefreshInterval, appCfg.Session.RefreshSkew, logger)
	refresher.SetRecorder(metrics)

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	var maxRequestSize int64
	if cfg.MaxFileSize > 0 {
		maxRequestSize = cfg.MaxFileSize + multipartOverhead
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxFileSize:    cfg.MaxFileSize,
		MaxRequestSize: maxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Backend:        client,
		Sessions:       session.NewManager(store, appCfg.Session, logger),
		Refresher:      refresher,
		Observability:  om,
		pages:          pages,
		rewrites:       newRewriteCache(),
		Logger:         logger,
	}, nil
}

// Handler returns the full middleware chain around the page routes
func (s *Server) Handler() http.Handler {
	mux := s.setupRoutes()
	chain := s.sessionMiddleware(mux)
	chain = s.rateLimitMiddleware(chain)
	return s.Observability.HTTPMiddleware()(chain)
}

// rewriteCache keeps each session's latest rewrite for the download link
type rewriteCache struct {
	mu    sync.Mutex
	texts map[string]string
}

func newRewriteCache() *rewriteCache {
	return &rewriteCache{texts: make(map[string]string)}
}

func (c *rewriteCache) put(sessionID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts[sessionID] = text
}

func (c *rewriteCache) get(sessionID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.texts[sessionID]
	return text, ok
}

func (c *rewriteCache) drop(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.texts, sessionID)
}
