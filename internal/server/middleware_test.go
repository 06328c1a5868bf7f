package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/session"
	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unavailableStore fails every lookup as a broken database would
type unavailableStore struct {
	session.Store
}

func (unavailableStore) Get(context.Context, string) (*types.AuthSession, error) {
	return nil, errors.NewIOError("SESSION_STORE_UNAVAILABLE", "database is locked", nil)
}

// recordingStore notes when it is closed and whether it is used afterwards
type recordingStore struct {
	session.Store
	closed         atomic.Bool
	usedAfterClose atomic.Bool
}

func (s *recordingStore) Update(ctx context.Context, sess *types.AuthSession) error {
	if s.closed.Load() {
		s.usedAfterClose.Store(true)
	}
	return s.Store.Update(ctx, sess)
}

func (s *recordingStore) Close() error {
	s.closed.Store(true)
	return s.Store.Close()
}

func TestSessionMiddlewareStoreFailureKeepsCookie(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()
	cookie := login(t, h, "ada@example.com")

	working := s.Sessions
	s.Sessions = session.NewManager(unavailableStore{Store: working.Store()}, s.AppConfig.Session, s.Logger)

	rec := do(t, h, get("/analyze"), cookie)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), msgSessionUnavailable)
	assert.Empty(t, rec.Result().Cookies(), "the cookie must survive a store outage")

	// a forged cookie never reaches the store and is dropped
	rec = do(t, h, get("/analyze"), &http.Cookie{Name: testCookieName, Value: "forged"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Less(t, sessionCookie(t, rec).MaxAge, 0)

	// once the store recovers the same cookie works again
	s.Sessions = working
	rec = do(t, h, get("/analyze"), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitBySessionKeysOnVerifiedSession(t *testing.T) {
	appCfg := testAppConfig(newFakeBackend(t).URL)
	appCfg.Server.RateLimit = config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		BurstCapacity:  1,
		BySession:      true,
	}
	s := newTestServer(t, appCfg)
	h := s.Handler()

	req := postForm("/login", url.Values{"email": {"ada@example.com"}, "password": {"secret123"}})
	req.RemoteAddr = "198.51.100.7:4321"
	rec := do(t, h, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookie(t, rec)

	// forged cookies share the client's IP bucket
	rec = do(t, h, get("/login"), &http.Cookie{Name: testCookieName, Value: "forged-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, get("/login"), &http.Cookie{Name: testCookieName, Value: "forged-2"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a verified session from the same address has its own bucket
	rec = do(t, h, get("/analyze"), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, get("/analyze"), cookie)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rejected, ok := s.RateLimiter.GetStats()["rejected"].(map[string]int64)
	require.True(t, ok)
	assert.Equal(t, int64(1), rejected["ip"])
	assert.Equal(t, int64(1), rejected["session"])
}

func TestGracefulShutdownDrainsBeforeClosingStore(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }

	backend := newFakeBackend(t, backendRoutes{
		"PUT /api/auth/me": func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			<-release
			respondJSON(w, http.StatusOK, userJSON)
		},
	})
	t.Cleanup(unblock)

	s := newTestServer(t, testAppConfig(backend.URL))
	h := s.Handler()
	cookie := login(t, h, "ada@example.com")

	store := &recordingStore{Store: s.Sessions.Store()}
	s.Sessions = session.NewManager(store, s.AppConfig.Session, s.Logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()

	body := url.Values{"name": {"Ada King"}}.Encode()
	req, err := http.NewRequest(http.MethodPost, "http://"+ln.Addr().String()+"/profile", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	codes := make(chan int, 1)
	go func() {
		resp, err := client.Do(req)
		if err != nil {
			codes <- 0
			return
		}
		_ = resp.Body.Close()
		codes <- resp.StatusCode
	}()

	<-entered
	done := make(chan error, 1)
	go func() { done <- s.performGracefulShutdown(srv) }()

	assert.Never(t, store.closed.Load, 200*time.Millisecond, 10*time.Millisecond)
	unblock()

	require.NoError(t, <-done)
	assert.Equal(t, http.StatusSeeOther, <-codes)
	assert.True(t, store.closed.Load())
	assert.False(t, store.usedAfterClose.Load())
}
