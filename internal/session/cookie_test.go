package session

import (
	"testing"
	"time"

	"resumelens/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := NewCookieCodec(testSecret, time.Hour)

	value, err := codec.Encode("session-1")
	require.NoError(t, err)

	id, err := codec.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)
}

func TestCookieCodecRejects(t *testing.T) {
	codec := NewCookieCodec(testSecret, time.Hour)
	valid, err := codec.Encode("session-1")
	require.NoError(t, err)

	other, err := NewCookieCodec("another-secret-another-secret-xx", time.Hour).Encode("session-1")
	require.NoError(t, err)

	expiredCodec := NewCookieCodec(testSecret, time.Hour)
	expiredCodec.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredCodec.Encode("session-1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone,
		&cookieClaims{SessionID: "session-1", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512,
		&cookieClaims{SessionID: "session-1", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		&cookieClaims{SessionID: "session-1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSID, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		&cookieClaims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"tampered", valid[:len(valid)-2] + "xx"},
		{"other secret", other},
		{"expired", expired},
		{"alg none", none},
		{"wrong algorithm", hs512},
		{"missing exp", noExp},
		{"missing session id", noSID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.value)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeSessionNotFound))
		})
	}
}

func signedAccessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ada@example.com",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-key"))
	require.NoError(t, err)
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(20 * time.Minute).Truncate(time.Second)

	got, ok := TokenExpiry(signedAccessToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
}
