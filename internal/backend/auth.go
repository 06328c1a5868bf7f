package backend

import (
	"context"
	"net/http"

	"resumelens/internal/errors"
	"resumelens/internal/types"
)

// Register creates an account and returns the tokens for the new user.
// When the backend answers with a bare profile the client signs in with
// the same credentials to obtain tokens.
func (c *Client) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthTokens, error) {
	resp, err := c.send(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   req,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := decodeJSON[types.AuthTokens](resp, "register")
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken != "" {
		return tokens, nil
	}

	user, err := decodeJSON[types.User](resp, "register")
	if err != nil {
		return nil, err
	}
	tokens, err = c.Login(ctx, types.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, err
	}
	if tokens.User == nil && user.ID != "" {
		tokens.User = user
	}
	return tokens, nil
}

// Login exchanges credentials for tokens
func (c *Client) Login(ctx context.Context, req types.LoginRequest) (*types.AuthTokens, error) {
	resp, err := c.send(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   req,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := decodeJSON[types.AuthTokens](resp, "login")
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, errors.NewBackendError(errors.ErrCodeDecodeFailed, "Login failed", resp.StatusCode(), nil)
	}
	return tokens, nil
}

// Refresh trades a refresh token for a new access token.
// The refresh token is sent both as a query parameter and in the body.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*types.AuthTokens, error) {
	if refreshToken == "" {
		return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, "No refresh token available", nil)
	}

	resp, err := c.send(ctx, request{
		op:     "refresh",
		method: http.MethodPost,
		path:   "/api/auth/refresh",
		query:  map[string]string{"refresh_token": refreshToken},
		body:   map[string]string{"refresh_token": refreshToken},
	})
	if err != nil {
		return nil, err
	}

	tokens, err := decodeJSON[types.AuthTokens](resp, "refresh")
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, "Invalid refresh token", nil)
	}
	return tokens, nil
}

// Logout invalidates the access token on the backend
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.send(ctx, request{
		op:     "logout",
		method: http.MethodPost,
		path:   "/api/auth/logout",
		token:  token,
	})
	return err
}

// Me returns the signed-in user's profile
func (c *Client) Me(ctx context.Context, token string) (*types.User, error) {
	resp, err := c.send(ctx, request{
		op:     "me",
		method: http.MethodGet,
		path:   "/api/auth/me",
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[types.User](resp, "me")
}

// UpdateMe changes the signed-in user's name or phone
func (c *Client) UpdateMe(ctx context.Context, token string, update types.ProfileUpdate) (*types.User, error) {
	resp, err := c.send(ctx, request{
		op:     "update_me",
		method: http.MethodPut,
		path:   "/api/auth/me",
		token:  token,
		body:   update,
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[types.User](resp, "update_me")
}

// ChangePassword updates the signed-in user's password and returns the backend's confirmation
func (c *Client) ChangePassword(ctx context.Context, token string, change types.PasswordChange) (string, error) {
	resp, err := c.send(ctx, request{
		op:     "change_password",
		method: http.MethodPost,
		path:   "/api/auth/change-password",
		token:  token,
		body:   change,
	})
	if err != nil {
		return "", err
	}

	if msg := DetailMessage(resp.Body()); msg != "" {
		return msg, nil
	}
	return "Password updated successfully", nil
}
