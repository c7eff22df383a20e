// Package api serves the Quintave JSON API over gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/auth"
	"github.com/quintave/quintave/internal/engine"
)

// Config holds the HTTP-facing settings.
type Config struct {
	// AppURL is the public base URL used to build the OAuth callback.
	AppURL string
	// AllowedOrigins lists the browser origins allowed to send credentials.
	AllowedOrigins []string
	// WebhookSecret is the shared RevenueCat Authorization value.
	WebhookSecret string
	// EnforceAccess answers 402 on data routes once the trial has lapsed.
	EnforceAccess bool
	SecureCookies bool
	// DevHosts are extra hosts, beyond loopback, whose Host header may be
	// used for the OAuth callback when AppURL points at localhost.
	DevHosts []string
	// DeepLink is where native logins are sent after the callback.
	DeepLink string
}

// DefaultDeepLink returns native logins to the app.
const DefaultDeepLink = "quintave://oauth/callback"

// Server wires the engine to HTTP routes.
type Server struct {
	engine   *engine.Engine
	sessions *auth.SessionManager
	identity auth.IdentityProvider
	logger   *zap.Logger
	router   *gin.Engine
	now      func() time.Time
	config   Config
}

// Option configures a Server.
type Option func(*Server)

// WithIdentityProvider enables the OAuth routes.
func WithIdentityProvider(p auth.IdentityProvider) Option {
	return func(s *Server) {
		s.identity = p
	}
}

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for request defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds a server and registers its routes.
func New(eng *engine.Engine, sessions *auth.SessionManager, config Config, opts ...Option) *Server {
	s := &Server{
		engine:   eng,
		sessions: sessions,
		config:   config,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.DeepLink == "" {
		s.config.DeepLink = DefaultDeepLink
	}

	router := gin.New()
	router.Use(s.requestLogger(), s.recovery(), s.cors())
	s.router = router
	s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.GET("/healthz", s.handleHealth)

	r.GET("/api/oauth/google", s.handleOAuthStart)
	r.GET("/api/oauth/callback", s.handleOAuthCallback)
	r.POST("/api/webhooks/revenuecat", s.handleRevenueCatWebhook)

	api := r.Group("/api")
	{
		api.GET("/auth/me", s.handleMe)
		api.POST("/auth/logout", s.handleLogout)
	}

	// Always reachable once signed in, so a locked-out user can still pay.
	session := api.Group("", s.authenticate())
	{
		session.POST("/onboarding/complete", s.handleCompleteOnboarding)

		session.GET("/purchase/status", s.handlePurchaseStatus)
		session.POST("/purchase/confirm", s.handleConfirmPurchase)
		session.POST("/purchase/link", s.handleLinkPurchase)
	}

	data := api.Group("", s.authenticate(), s.requireAccess())
	{
		data.GET("/buckets", s.handleListBuckets)
		data.POST("/buckets", s.handleCreateBucket)
		data.GET("/buckets/summary", s.handleBucketSummary)
		data.PUT("/buckets/:id/balance", s.handleSetBucketBalance)

		data.GET("/transactions", s.handleListTransactions)
		data.POST("/transactions", s.handleCreateTransaction)
		data.DELETE("/transactions/:id", s.handleDeleteTransaction)

		data.GET("/goals", s.handleListGoals)
		data.POST("/goals", s.handleCreateGoal)
		data.PUT("/goals/:id/progress", s.handleUpdateGoalProgress)
		data.DELETE("/goals/:id", s.handleDeleteGoal)

		data.GET("/habits", s.handleListHabits)
		data.POST("/habits", s.handleCreateHabit)
		data.DELETE("/habits/completions/:id", s.handleDeleteHabitCompletion)
		data.POST("/habits/:id/complete", s.handleCompleteHabit)
		data.GET("/habits/:id/history", s.handleHabitHistory)
		data.DELETE("/habits/:id", s.handleDeleteHabit)

		data.GET("/journal", s.handleListJournal)
		data.POST("/journal", s.handleCreateJournal)
		data.DELETE("/journal/:id", s.handleDeleteJournal)

		data.GET("/analytics/financial-progress", s.handleFinancialProgress)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
