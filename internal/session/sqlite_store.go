package session

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"resumelens/internal/errors"
	"resumelens/internal/types"

	_ "modernc.org/sqlite"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	"id" TEXT PRIMARY KEY,
	"access_token" TEXT NOT NULL,
	"refresh_token" TEXT NOT NULL DEFAULT '',
	"user_json" TEXT NOT NULL DEFAULT '',
	"created_at" INTEGER NOT NULL,
	"updated_at" INTEGER NOT NULL,
	"last_refreshed" INTEGER NOT NULL DEFAULT 0,
	"expires_at" INTEGER NOT NULL DEFAULT 0
);`

const createSessionsIndex = `CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions (expires_at);`

const upsertSession = `
INSERT INTO sessions (id, access_token, refresh_token, user_json, created_at, updated_at, last_refreshed, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	user_json = excluded.user_json,
	updated_at = excluded.updated_at,
	last_refreshed = excluded.last_refreshed,
	expires_at = excluded.expires_at`

const updateSession = `
UPDATE sessions SET
	access_token = ?,
	refresh_token = ?,
	user_json = ?,
	updated_at = ?,
	last_refreshed = ?,
	expires_at = ?
WHERE id = ?`

const selectSessionColumns = `SELECT id, access_token, refresh_token, user_json, created_at, updated_at, last_refreshed, expires_at FROM sessions`

// SQLiteStore persists sessions in a SQLite database so they survive restarts
type SQLiteStore struct {
	db     *sql.DB
	logger *errors.Logger
	now    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string, cleanupInterval time.Duration, logger *errors.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to open session database", err).
			WithContext("path", path)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to connect to session database", err).
			WithContext("path", path)
	}
	for _, stmt := range []string{createSessionsTable, createSessionsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to create sessions table", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	if cleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupLoop(cleanupInterval)
	}
	return s, nil
}

func (s *SQLiteStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := s.PurgeExpired(context.Background()); err != nil {
				s.logger.LogError(err, "Failed to purge expired sessions")
			} else if n > 0 {
				s.logger.Debug("Purged expired sessions", "count", n)
			}
		case <-s.stop:
			return
		}
	}
}

// PurgeExpired deletes every expired row and returns how many were removed
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at > 0 AND expires_at < ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.AuthSession, error) {
	row := s.db.QueryRowContext(ctx, selectSessionColumns+` WHERE id = ?`, id)
	sess, err := scanSession(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if sess.Expired(s.now()) {
		_ = s.Delete(ctx, id)
		return nil, notFound(id)
	}
	return sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *types.AuthSession) error {
	if sess == nil || sess.ID == "" {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest, "session ID is required", nil)
	}
	userJSON, err := encodeUser(sess.User)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, upsertSession,
		sess.ID,
		sess.AccessToken,
		sess.RefreshToken,
		userJSON,
		toMillis(sess.CreatedAt),
		toMillis(sess.UpdatedAt),
		toMillis(sess.LastRefreshed),
		toMillis(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, sess *types.AuthSession) error {
	if sess == nil || sess.ID == "" {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest, "session ID is required", nil)
	}
	userJSON, err := encodeUser(sess.User)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, updateSession,
		sess.AccessToken,
		sess.RefreshToken,
		userJSON,
		toMillis(sess.UpdatedAt),
		toMillis(sess.LastRefreshed),
		toMillis(sess.ExpiresAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		return notFound(sess.ID)
	}
	return nil
}

func encodeUser(user *types.User) (string, error) {
	if user == nil {
		return "", nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encoding session user: %w", err)
	}
	return string(data), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*types.AuthSession, error) {
	rows, err := s.db.QueryContext(ctx,
		selectSessionColumns+` WHERE expires_at = 0 OR expires_at >= ?`, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*types.AuthSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("reading session row: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Close stops the cleanup goroutine and closes the database
func (s *SQLiteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*types.AuthSession, error) {
	var sess types.AuthSession
	var userJSON string
	var createdAt, updatedAt, lastRefreshed, expiresAt int64
	if err := row.Scan(&sess.ID, &sess.AccessToken, &sess.RefreshToken, &userJSON,
		&createdAt, &updatedAt, &lastRefreshed, &expiresAt); err != nil {
		return nil, err
	}

	if userJSON != "" {
		var user types.User
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			return nil, fmt.Errorf("decoding session user: %w", err)
		}
		sess.User = &user
	}
	sess.CreatedAt = fromMillis(createdAt)
	sess.UpdatedAt = fromMillis(updatedAt)
	sess.LastRefreshed = fromMillis(lastRefreshed)
	sess.ExpiresAt = fromMillis(expiresAt)
	return &sess, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
