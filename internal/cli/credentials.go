package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resumelens/internal/errors"
	"resumelens/internal/session"
	"resumelens/internal/types"
)

const (
	credentialsDir  = ".resumelens"
	credentialsFile = "credentials.json"

	msgNotLoggedIn    = "Not logged in. Run 'resumelens login' first."
	msgSessionExpired = "Session expired. Please log in again."
)

// Credentials are the tokens the CLI keeps between runs
type Credentials struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *types.User `json:"user,omitempty"`
	SavedAt      time.Time   `json:"saved_at"`
}

// CredentialStore persists Credentials in a single owner-only file and
// serves them to backend commands, refreshing on demand
type CredentialStore struct {
	path      string
	refresher session.TokenRefresher
	logger    *errors.Logger
}

// defaultCredentialsPath is $HOME/.resumelens/credentials.json
func defaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "Cannot locate home directory", err)
	}
	return filepath.Join(home, credentialsDir, credentialsFile), nil
}

// NewCredentialStore creates a store at path; refresher may be nil for commands that never refresh
func NewCredentialStore(path string, refresher session.TokenRefresher, logger *errors.Logger) *CredentialStore {
	return &CredentialStore{path: path, refresher: refresher, logger: logger}
}

// Path returns the credentials file location
func (cs *CredentialStore) Path() string {
	return cs.path
}

// Load reads the stored credentials
func (cs *CredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, msgNotLoggedIn, err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read credentials: %s", cs.path), err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil || creds.AccessToken == "" {
		return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, msgNotLoggedIn, err)
	}
	return &creds, nil
}

// Save writes tokens with mode 0600, creating the directory with mode 0700
func (cs *CredentialStore) Save(tokens *types.AuthTokens) error {
	if tokens == nil || tokens.AccessToken == "" {
		return errors.NewAuthError(errors.ErrCodeUnauthorized, "No access token received", nil)
	}

	creds := Credentials{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         tokens.User,
		SavedAt:      time.Now().UTC(),
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest, "Failed to encode credentials", err)
	}

	if err := os.MkdirAll(filepath.Dir(cs.path), 0o700); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory: %s", filepath.Dir(cs.path)), err)
	}
	if err := os.WriteFile(cs.path, data, 0o600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write credentials: %s", cs.path), err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(cs.path, 0o600)
}

// Delete removes the credentials file; a missing file is not an error
func (cs *CredentialStore) Delete() error {
	if err := os.Remove(cs.path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("FILE_DELETE_FAILED",
			fmt.Sprintf("Cannot delete credentials: %s", cs.path), err)
	}
	return nil
}

// AccessToken returns the stored access token
func (cs *CredentialStore) AccessToken() (string, error) {
	creds, err := cs.Load()
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// Refresh trades the stored refresh token for a new access token. A rejected
// refresh deletes the credentials so the next command asks for a login; they
// are kept when the backend cannot be reached.
func (cs *CredentialStore) Refresh(ctx context.Context) (string, error) {
	creds, err := cs.Load()
	if err != nil {
		return "", err
	}
	if creds.RefreshToken == "" || cs.refresher == nil {
		cs.discard()
		return "", errors.NewAuthError(errors.ErrCodeUnauthorized, msgSessionExpired, nil)
	}

	tokens, err := cs.refresher.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if !errors.IsRejection(err) {
			cs.logger.Warn("Token refresh deferred, backend unavailable", "error", err.Error())
			return "", err
		}
		cs.logger.LogError(err, "Token refresh rejected")
		cs.discard()
		return "", errors.NewAuthError(errors.ErrCodeUnauthorized, msgSessionExpired, err)
	}

	if tokens.RefreshToken == "" {
		tokens.RefreshToken = creds.RefreshToken
	}
	if tokens.User == nil {
		tokens.User = creds.User
	}
	if err := cs.Save(tokens); err != nil {
		return "", err
	}
	cs.logger.Debug("Access token refreshed")
	return tokens.AccessToken, nil
}

func (cs *CredentialStore) discard() {
	if err := cs.Delete(); err != nil {
		cs.logger.LogError(err, "Failed to delete stale credentials")
	}
}
