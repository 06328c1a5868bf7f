package session

import (
	"context"
	"net/http"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/google/uuid"
)

// Manager ties the session store to the browser cookie
type Manager struct {
	store  Store
	codec  *CookieCodec
	cfg    config.SessionConfig
	logger *errors.Logger
	now    func() time.Time
}

// NewManager creates a manager; cfg.Secret must already be set
func NewManager(store Store, cfg config.SessionConfig, logger *errors.Logger) *Manager {
	return &Manager{
		store:  store,
		codec:  NewCookieCodec(cfg.Secret, cfg.TTL),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Store returns the underlying session store
func (m *Manager) Store() Store {
	return m.store
}

// Begin stores a new session for tokens and sets the session cookie
func (m *Manager) Begin(ctx context.Context, w http.ResponseWriter, tokens *types.AuthTokens) (*types.AuthSession, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, "No access token received", nil)
	}

	now := m.now().UTC()
	s := &types.AuthSession{
		ID:           uuid.NewString(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         tokens.User,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(m.cfg.TTL),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}

	value, err := m.codec.Encode(s.ID)
	if err != nil {
		_ = m.store.Delete(ctx, s.ID)
		return nil, err
	}
	http.SetCookie(w, m.cookie(value, s.ExpiresAt))

	m.logger.Debug("Session started", "session_id", s.ID)
	return s, nil
}

// SessionID returns the verified session ID from the request cookie without
// touching the store
func (m *Manager) SessionID(r *http.Request) (string, error) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return "", errors.NewAuthError(errors.ErrCodeSessionNotFound, "No session cookie", err)
	}
	return m.codec.Decode(c.Value)
}

// Load returns the session named by the request cookie
func (m *Manager) Load(r *http.Request) (*types.AuthSession, error) {
	id, err := m.SessionID(r)
	if err != nil {
		return nil, err
	}
	return m.store.Get(r.Context(), id)
}

// Update saves changes to an existing session; a session ended meanwhile
// gives SESSION_NOT_FOUND
func (m *Manager) Update(ctx context.Context, s *types.AuthSession) error {
	s.UpdatedAt = m.now().UTC()
	return m.store.Update(ctx, s)
}

// End deletes the request's session and expires the cookie
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	var err error
	if s, loadErr := m.Load(r); loadErr == nil {
		err = m.store.Delete(r.Context(), s.ID)
		m.logger.Debug("Session ended", "session_id", s.ID)
	}
	m.ExpireCookie(w)
	return err
}

// Clear deletes a session by ID, used when the backend rejects its token
func (m *Manager) Clear(ctx context.Context, id string) error {
	m.logger.Debug("Session cleared", "session_id", id)
	return m.store.Delete(ctx, id)
}

// ExpireCookie tells the browser to drop the session cookie
func (m *Manager) ExpireCookie(w http.ResponseWriter) {
	c := m.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// Stats summarizes the store for health and stats endpoints
func (m *Manager) Stats(ctx context.Context) map[string]any {
	stats := map[string]any{"store": m.cfg.Store}
	if stats["store"] == "" {
		stats["store"] = config.SessionStoreMemory
	}
	sessions, err := m.store.List(ctx)
	if err != nil {
		stats["error"] = err.Error()
		return stats
	}
	stats["active"] = len(sessions)
	return stats
}

func (m *Manager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

type contextKey struct{}

// WithSession attaches a loaded session to ctx
func WithSession(ctx context.Context, s *types.AuthSession) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by WithSession, if any
func FromContext(ctx context.Context) (*types.AuthSession, bool) {
	s, ok := ctx.Value(contextKey{}).(*types.AuthSession)
	return s, ok && s != nil
}
