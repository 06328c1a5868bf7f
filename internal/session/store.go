// Package session keeps the backend tokens of signed-in users on the server side.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/types"
)

const defaultCleanupInterval = 5 * time.Minute

// Store persists AuthSessions by ID
type Store interface {
	// Get returns a SESSION_NOT_FOUND error for unknown or expired sessions
	Get(ctx context.Context, id string) (*types.AuthSession, error)
	// Save inserts or replaces s
	Save(ctx context.Context, s *types.AuthSession) error
	// Update replaces s only while it is still stored, so a session deleted
	// in the meantime stays deleted
	Update(ctx context.Context, s *types.AuthSession) error
	Delete(ctx context.Context, id string) error
	// List returns every unexpired session
	List(ctx context.Context) ([]*types.AuthSession, error)
	Close() error
}

// NewStore builds the store selected by cfg.Store
func NewStore(cfg config.SessionConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Store {
	case "", config.SessionStoreMemory:
		logger.Info("Using in-memory session store")
		return NewMemoryStore(defaultCleanupInterval), nil
	case config.SessionStoreSQLite:
		logger.Info("Using SQLite session store", "path", cfg.SQLitePath)
		store, err := NewSQLiteStore(cfg.SQLitePath, defaultCleanupInterval, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown session store: %s", cfg.Store), nil)
	}
}

func notFound(id string) error {
	return errors.NewAuthError(errors.ErrCodeSessionNotFound, "Session not found", nil).
		WithContext("session_id", id)
}

func clone(s *types.AuthSession) *types.AuthSession {
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	return &c
}

// MemoryStore keeps sessions in a map; everything is lost on restart
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.AuthSession
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMemoryStore starts a store that drops expired sessions every cleanupInterval
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[string]*types.AuthSession),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		m.wg.Add(1)
		go m.cleanupLoop(cleanupInterval)
	}
	return m
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.purgeExpired()
		case <-m.stop:
			return
		}
	}
}

// purgeExpired removes expired sessions and returns how many were dropped
func (m *MemoryStore) purgeExpired() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Get(_ context.Context, id string) (*types.AuthSession, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, notFound(id)
	}
	if s.Expired(m.now()) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, notFound(id)
	}
	return clone(s), nil
}

func (m *MemoryStore) Save(_ context.Context, s *types.AuthSession) error {
	if s == nil || s.ID == "" {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest, "session ID is required", nil)
	}
	m.mu.Lock()
	m.sessions[s.ID] = clone(s)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Update(_ context.Context, s *types.AuthSession) error {
	if s == nil || s.ID == "" {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest, "session ID is required", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return notFound(s.ID)
	}
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*types.AuthSession, error) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.AuthSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !s.Expired(now) {
			out = append(out, clone(s))
		}
	}
	return out, nil
}

// Close stops the cleanup goroutine
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
	return nil
}
