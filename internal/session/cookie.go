package session

import (
	stderrors "errors"
	"fmt"
	"time"

	"resumelens/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// cookieClaims is the signed payload of the session cookie
type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieCodec signs session IDs into cookie values
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCookieCodec creates a codec whose values expire after ttl
func NewCookieCodec(secret string, ttl time.Duration) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Encode returns the cookie value for a session ID
func (c *CookieCodec) Encode(sessionID string) (string, error) {
	now := c.now()
	claims := &cookieClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	value, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return value, nil
}

// Decode verifies a cookie value and returns the session ID inside it
func (c *CookieCodec) Decode(value string) (string, error) {
	if value == "" {
		return "", errors.NewAuthError(errors.ErrCodeSessionNotFound, "Session cookie is empty", nil)
	}

	claims := &cookieClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		reason := "invalid session cookie"
		switch {
		case stderrors.Is(err, jwt.ErrTokenExpired):
			reason = "session cookie expired"
		case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
			reason = "session cookie signature invalid"
		case stderrors.Is(err, jwt.ErrTokenMalformed):
			reason = "malformed session cookie"
		}
		return "", errors.NewAuthError(errors.ErrCodeSessionNotFound, reason, err)
	}

	if claims.SessionID == "" {
		return "", errors.NewAuthError(errors.ErrCodeSessionNotFound, "session cookie has no session ID", nil)
	}
	return claims.SessionID, nil
}

// TokenExpiry reads the exp claim of a backend access token without verifying it.
// ok is false for opaque tokens or tokens without exp.
func TokenExpiry(accessToken string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
