package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintave/quintave/internal/auth"
)

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// startLogin runs the first OAuth leg and returns the encoded state and
// nonce cookie.
func startLogin(t *testing.T, f *apiFixture, platform string) (string, *http.Cookie) {
	t.Helper()

	w := f.do(http.MethodGet, "/api/oauth/google?platform="+platform, nil, "")
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	nonce := cookieNamed(w, nonceCookieName)
	require.NotNil(t, nonce)
	return state, nonce
}

func callback(f *apiFixture, query string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/oauth/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestOAuthStart(t *testing.T) {
	f := newAPIFixture(t, Config{AppURL: "https://quintave.example.com"})

	encoded, nonce := startLogin(t, f, "native")
	state, err := auth.DecodeState(encoded)
	require.NoError(t, err)
	assert.Equal(t, "https://quintave.example.com/api/oauth/callback", state.RedirectURI)
	assert.Equal(t, auth.PlatformNative, state.Platform)
	assert.Equal(t, state.Nonce, nonce.Value)
	assert.True(t, nonce.HttpOnly)
}

func TestOAuthStart_LocalhostUsesRequestHost(t *testing.T) {
	f := newAPIFixture(t, Config{AppURL: "http://localhost:3000", DevHosts: []string{"192.168.1.20"}})

	req := httptest.NewRequest(http.MethodGet, "/api/oauth/google", nil)
	req.Host = "192.168.1.20:3000"
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state, err := auth.DecodeState(location.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.20:3000/api/oauth/callback", state.RedirectURI)
	assert.Equal(t, auth.PlatformWeb, state.Platform)
}

func TestOAuthStart_UntrustedHost(t *testing.T) {
	start := func(f *apiFixture, host, proto string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/oauth/google", nil)
		req.Host = host
		if proto != "" {
			req.Header.Set("X-Forwarded-Proto", proto)
		}
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)
		return w
	}
	redirectOf := func(t *testing.T, w *httptest.ResponseRecorder) string {
		t.Helper()
		require.Equal(t, http.StatusFound, w.Code, w.Body.String())
		location, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		state, err := auth.DecodeState(location.Query().Get("state"))
		require.NoError(t, err)
		return state.RedirectURI
	}

	t.Run("falls back to the configured localhost url", func(t *testing.T) {
		f := newAPIFixture(t, Config{AppURL: "http://localhost:3000"})
		w := start(f, "evil.example.com", "https")
		assert.Equal(t, "http://localhost:3000/api/oauth/callback", redirectOf(t, w))
	})

	t.Run("rejected without an app url", func(t *testing.T) {
		f := newAPIFixture(t, Config{})
		w := start(f, "evil.example.com", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("allowed origin host is trusted", func(t *testing.T) {
		f := newAPIFixture(t, Config{AllowedOrigins: []string{"https://staging.quintave.example.com"}})
		w := start(f, "staging.quintave.example.com", "https")
		assert.Equal(t, "https://staging.quintave.example.com/api/oauth/callback", redirectOf(t, w))
	})

	t.Run("unknown forwarded proto is ignored", func(t *testing.T) {
		f := newAPIFixture(t, Config{})
		w := start(f, "127.0.0.1:3000", "javascript")
		assert.Equal(t, "http://127.0.0.1:3000/api/oauth/callback", redirectOf(t, w))
	})
}

func TestOAuthNotConfigured(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.server.identity = nil

	w := f.do(http.MethodGet, "/api/oauth/google", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOAuthCallback_Web(t *testing.T) {
	f := newAPIFixture(t, Config{AppURL: "https://quintave.example.com"})
	state, nonce := startLogin(t, f, "web")

	w := callback(f, "code=abc&state="+url.QueryEscape(state), nonce)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "abc", f.identity.code)

	session := cookieNamed(w, auth.SessionCookieName)
	require.NotNil(t, session)
	assert.Equal(t, 3600, session.MaxAge)

	claims, err := f.sessions.Parse(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "google-42", claims.Subject)

	me := f.do(http.MethodGet, "/api/auth/me", nil, session.Value)
	assert.Contains(t, me.Body.String(), "ada@example.com")
}

func TestOAuthCallback_NativeDeepLink(t *testing.T) {
	f := newAPIFixture(t, Config{AppURL: "https://quintave.example.com"})
	state, nonce := startLogin(t, f, "native")

	w := callback(f, "code=abc&state="+url.QueryEscape(state), nonce)
	require.Equal(t, http.StatusFound, w.Code)

	location := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "quintave://oauth/callback?"), location)

	parsed, err := url.Parse(location)
	require.NoError(t, err)
	assert.Equal(t, "true", parsed.Query().Get("success"))
	_, err = f.sessions.Parse(parsed.Query().Get("token"))
	assert.NoError(t, err)
}

func TestOAuthCallback_Rejects(t *testing.T) {
	f := newAPIFixture(t, Config{AppURL: "https://quintave.example.com"})
	state, nonce := startLogin(t, f, "web")

	t.Run("missing code", func(t *testing.T) {
		w := callback(f, "state="+url.QueryEscape(state), nonce)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("undecodable state", func(t *testing.T) {
		w := callback(f, "code=abc&state=%25%25", nonce)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		w := callback(f, "code=abc&state="+url.QueryEscape(state), &http.Cookie{Name: nonceCookieName, Value: "other"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no nonce cookie", func(t *testing.T) {
		w := callback(f, "code=abc&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("exchange failure", func(t *testing.T) {
		f.identity.err = errors.New("invalid_grant")
		t.Cleanup(func() { f.identity.err = nil })

		w := callback(f, "code=abc&state="+url.QueryEscape(state), nonce)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, oauthFailed, errorMessage(t, w))
		assert.Nil(t, cookieNamed(w, auth.SessionCookieName))
	})
}
