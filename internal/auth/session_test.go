package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

func TestNewSessionManager(t *testing.T) {
	_, err := NewSessionManager("", 0)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	m, err := NewSessionManager("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, m.TTL())
}

func TestSessionManager_RoundTrip(t *testing.T) {
	m, err := NewSessionManager("secret", time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	token, expires, err := m.Issue(&model.User{ID: 7, OpenID: "google-7", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "google-7", claims.Subject)
	assert.Equal(t, "Ada", claims.Name)

	now = now.Add(2 * time.Hour)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSessionManager_Rejects(t *testing.T) {
	m, err := NewSessionManager("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewSessionManager("different", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.Issue(&model.User{ID: 1, OpenID: "x"})
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"wrong secret":   foreign,
		"alg none":       unsigned,
		"missing userID": noUser,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}
