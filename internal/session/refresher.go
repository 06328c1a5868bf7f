package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"resumelens/internal/errors"
	"resumelens/internal/types"
)

// TokenRefresher exchanges a refresh token for new tokens
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*types.AuthTokens, error)
}

// RefreshRecorder observes refresh outcomes
type RefreshRecorder interface {
	RecordSessionRefresh(ctx context.Context, success bool)
}

// RefreshStats counts refresher outcomes since start
type RefreshStats struct {
	Refreshed int64     `json:"refreshed"`
	Failed    int64     `json:"failed"`
	Deferred  int64     `json:"deferred"`
	Expired   int64     `json:"expired"`
	LastRun   time.Time `json:"last_run,omitempty"`
}

// Refresher keeps stored access tokens fresh in the background
type Refresher struct {
	store    Store
	backend  TokenRefresher
	interval time.Duration
	skew     time.Duration
	logger   *errors.Logger
	recorder RefreshRecorder
	now      func() time.Time

	refreshed atomic.Int64
	failed    atomic.Int64
	deferred  atomic.Int64
	expired   atomic.Int64
	lastRun   atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher; call Start to run it
func NewRefresher(store Store, backend TokenRefresher, interval, skew time.Duration, logger *errors.Logger) *Refresher {
	return &Refresher{
		store:    store,
		backend:  backend,
		interval: interval,
		skew:     skew,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// SetRecorder attaches a metrics recorder
func (r *Refresher) SetRecorder(rec RefreshRecorder) {
	r.recorder = rec
}

// Start runs RefreshAll every interval until ctx is done or Stop is called
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.RefreshAll(ctx)
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}()
	r.logger.Info("Session refresher started", "interval", r.interval.String())
}

// Stop ends the background loop and waits for it
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// RefreshAll refreshes every stored session. Sessions whose refresh the backend
// rejects are deleted; sessions are kept while the backend is unreachable.
func (r *Refresher) RefreshAll(ctx context.Context) {
	r.lastRun.Store(r.now().UnixMilli())

	sessions, err := r.store.List(ctx)
	if err != nil {
		r.logger.LogError(err, "Failed to list sessions for refresh")
		return
	}

	for _, s := range sessions {
		if ctx.Err() != nil {
			return
		}
		if s.RefreshToken == "" {
			// Nothing to refresh with; drop it once the access token is past exp
			if exp, ok := TokenExpiry(s.AccessToken); s.Expired(r.now()) || ok && !r.now().Before(exp) {
				r.expired.Add(1)
				_ = r.store.Delete(ctx, s.ID)
			}
			continue
		}
		_ = r.refresh(ctx, s)
	}
}

// RefreshIfStale refreshes s when its access token expires within the skew window.
// Tokens whose expiry cannot be read are left alone. An error means the session
// is gone; when the backend cannot be reached s is returned with its current token.
func (r *Refresher) RefreshIfStale(ctx context.Context, s *types.AuthSession) (*types.AuthSession, error) {
	if s == nil || s.RefreshToken == "" {
		return s, nil
	}
	exp, ok := TokenExpiry(s.AccessToken)
	if !ok || r.now().Add(r.skew).Before(exp) {
		return s, nil
	}
	if err := r.refresh(ctx, s); err != nil {
		if errors.IsUnauthorized(err) || errors.HasCode(err, errors.ErrCodeSessionNotFound) {
			return nil, err
		}
		return s, nil
	}
	return s, nil
}

func (r *Refresher) refresh(ctx context.Context, s *types.AuthSession) error {
	tokens, err := r.backend.Refresh(ctx, s.RefreshToken)
	if err != nil {
		r.record(ctx, false)
		if !errors.IsRejection(err) {
			r.deferred.Add(1)
			r.logger.Warn("Session refresh deferred, backend unavailable",
				"session_id", s.ID, "error", err.Error())
			return err
		}
		r.failed.Add(1)
		r.logger.LogError(err, "Session refresh rejected, signing out", "session_id", s.ID)
		_ = r.store.Delete(ctx, s.ID)
		return errors.NewAuthError(errors.ErrCodeUnauthorized, "Session expired. Please log in again.", err)
	}

	now := r.now().UTC()
	s.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		s.RefreshToken = tokens.RefreshToken
	}
	s.LastRefreshed = now
	s.UpdatedAt = now
	if err := r.store.Update(ctx, s); err != nil {
		if errors.HasCode(err, errors.ErrCodeSessionNotFound) {
			r.logger.Debug("Session ended during refresh", "session_id", s.ID)
			return err
		}
		r.logger.LogError(err, "Failed to store refreshed session", "session_id", s.ID)
		return err
	}

	r.refreshed.Add(1)
	r.record(ctx, true)
	r.logger.Debug("Session refreshed", "session_id", s.ID)
	return nil
}

func (r *Refresher) record(ctx context.Context, success bool) {
	if r.recorder != nil {
		r.recorder.RecordSessionRefresh(ctx, success)
	}
}

// Stats returns the refresher counters
func (r *Refresher) Stats() RefreshStats {
	stats := RefreshStats{
		Refreshed: r.refreshed.Load(),
		Failed:    r.failed.Load(),
		Deferred:  r.deferred.Load(),
		Expired:   r.expired.Load(),
	}
	if ms := r.lastRun.Load(); ms > 0 {
		stats.LastRun = time.UnixMilli(ms).UTC()
	}
	return stats
}
