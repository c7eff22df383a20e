// Package auth issues and verifies session tokens and runs the Google
// sign-in exchange.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

// Session defaults.
const (
	SessionCookieName = "app_session_id"
	DefaultSessionTTL = 365 * 24 * time.Hour
	sessionIssuer     = "quintave"
)

// ErrInvalidSession is returned for any token that fails verification.
var ErrInvalidSession = fmt.Errorf("%w: invalid session", common.ErrUnauthorized)

// Claims are the session token claims. Subject carries the login provider's
// open id.
type Claims struct {
	Name   string `json:"name,omitempty"`
	UserID int64  `json:"uid"`
	jwt.RegisteredClaims
}

// SessionManager signs HS256 session tokens.
type SessionManager struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// NewSessionManager returns a manager signing with secret. A zero ttl means
// DefaultSessionTTL.
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: session secret", common.ErrMissingConfig)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued sessions stay valid.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a signed token for user and its expiry.
func (m *SessionManager) Issue(user *model.User) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   user.OpenID,
			ID:        strconv.FormatInt(user.ID, 10) + "-" + strconv.FormatInt(now.UnixNano(), 36),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

// Parse verifies a token and returns its claims.
func (m *SessionManager) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Verify the signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
