package api

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/auth"
	"github.com/quintave/quintave/internal/common"
)

const (
	nonceCookieName   = "oauth_nonce"
	nonceCookieMaxAge = 10 * 60
	callbackPath      = "/api/oauth/callback"
	oauthFailed       = "OAuth callback failed"
)

func (s *Server) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.config.SecureCookies, true)
}

// handleMe returns the signed-in user with their access status, or a null
// user when there is no session.
func (s *Server) handleMe(c *gin.Context) {
	user, err := s.sessionUser(c)
	if errors.Is(err, common.ErrUnauthorized) {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "access": s.engine.AccessStatus(user)})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.setCookie(c, auth.SessionCookieName, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// callbackURL is where the provider sends the user back. APP_URL wins
// unless it points at localhost, in which case a trusted request host is
// used so device testing against a LAN address works. It reports false
// when neither source is usable.
func (s *Server) callbackURL(c *gin.Context) (string, bool) {
	appURL := strings.TrimRight(s.config.AppURL, "/")
	if appURL != "" && !strings.Contains(appURL, "localhost") {
		return appURL + callbackPath, true
	}

	if !s.trustedHost(c.Request.Host) {
		if appURL == "" {
			return "", false
		}
		return appURL + callbackPath, true
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := strings.ToLower(c.GetHeader("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + callbackPath, true
}

// trustedHost reports whether a Host header names loopback, a configured
// development host, or the host of an allowed origin.
func (s *Server) trustedHost(host string) bool {
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	name = strings.ToLower(strings.Trim(name, "[]"))
	if name == "" {
		return false
	}
	if name == "localhost" {
		return true
	}
	if ip := net.ParseIP(name); ip != nil && ip.IsLoopback() {
		return true
	}

	for _, h := range s.config.DevHosts {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	for _, origin := range s.config.AllowedOrigins {
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Hostname(), name) {
			return true
		}
	}
	return false
}

func (s *Server) handleOAuthStart(c *gin.Context) {
	if s.identity == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google OAuth is not configured"})
		return
	}

	redirectURI, ok := s.callbackURL(c)
	if !ok {
		s.badRequest(c, "untrusted host")
		return
	}
	state := auth.NewState(redirectURI, c.Query("platform"))
	s.setCookie(c, nonceCookieName, state.Nonce, nonceCookieMaxAge)

	c.Redirect(http.StatusFound, s.identity.AuthCodeURL(state.Encode(), redirectURI))
}

func (s *Server) handleOAuthCallback(c *gin.Context) {
	code, rawState := c.Query("code"), c.Query("state")
	if code == "" || rawState == "" {
		s.badRequest(c, "code and state are required")
		return
	}
	if s.identity == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google OAuth is not configured"})
		return
	}

	state, err := auth.DecodeState(rawState)
	if err != nil {
		s.badRequest(c, "invalid state")
		return
	}
	nonce, err := c.Cookie(nonceCookieName)
	if err != nil || nonce == "" || nonce != state.Nonce {
		s.badRequest(c, "invalid state")
		return
	}
	s.setCookie(c, nonceCookieName, "", -1)

	ctx := c.Request.Context()
	identity, err := s.identity.Exchange(ctx, code, state.RedirectURI)
	if err != nil {
		s.logger.Error("oauth exchange failed", zap.String("request_id", requestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": oauthFailed})
		return
	}

	user, err := s.engine.SignIn(ctx, identity)
	if err != nil {
		s.logger.Error("oauth sign in failed", zap.String("request_id", requestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": oauthFailed})
		return
	}

	token, _, err := s.sessions.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue session", zap.String("request_id", requestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": oauthFailed})
		return
	}
	s.setCookie(c, auth.SessionCookieName, token, int(s.sessions.TTL().Seconds()))

	s.logger.Info("user signed in", zap.Int64("user_id", user.ID), zap.String("platform", state.Platform))

	if state.Platform == auth.PlatformNative {
		// Native apps cannot read the browser's cookie, so the token rides
		// along on the deep link.
		q := url.Values{"success": {"true"}, "token": {token}}
		c.Redirect(http.StatusFound, s.config.DeepLink+"?"+q.Encode())
		return
	}
	c.Redirect(http.StatusFound, "/")
}
