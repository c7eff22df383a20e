package api

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/auth"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/model"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	userKey         = "user"
)

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// requestLogger tags each request with an id and logs it on completion.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if user, ok := c.Get(userKey); ok {
			fields = append(fields, zap.Int64("user_id", user.(*model.User).ID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request", fields...)
			return
		}
		s.logger.Info("request", fields...)
	}
}

// recovery turns panics into 500s and logs them.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		s.logger.Error("panic serving request",
			zap.String("request_id", requestID(c)),
			zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
	})
}

// cors lets the configured web origins call the API with credentials. The
// webhook is open to any origin and never gets credentials.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case strings.HasPrefix(c.Request.URL.Path, "/api/webhooks"):
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.config.AllowedOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// extractTokens returns the session candidates in order: the cookie, then a
// "Bearer <token>" header for clients without cookies.
func extractTokens(c *gin.Context) []string {
	var tokens []string
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && cookie != "" {
		tokens = append(tokens, cookie)
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if token := strings.TrimSpace(parts[1]); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// sessionUser resolves the request's session to a user. A cookie that fails
// to parse falls through to the bearer header. It returns
// common.ErrUnauthorized when there is no usable session.
func (s *Server) sessionUser(c *gin.Context) (*model.User, error) {
	var (
		claims *auth.Claims
		err    = auth.ErrInvalidSession
	)
	for _, token := range extractTokens(c) {
		if claims, err = s.sessions.Parse(token); err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	user, err := s.engine.User(c.Request.Context(), claims.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, auth.ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// authenticate requires a valid session and stores its user on the context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.sessionUser(c)
		if err != nil {
			if errors.Is(err, common.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please login"})
				return
			}
			s.fail(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// requireAccess answers 402 with the access status when enforcement is on
// and the user's trial has lapsed without a purchase.
func (s *Server) requireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.config.EnforceAccess {
			c.Next()
			return
		}

		status := s.engine.AccessStatus(currentUser(c))
		if !status.HasAccess {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":  common.ErrAccessExpired.Error(),
				"status": status,
			})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(userKey).(*model.User)
}
