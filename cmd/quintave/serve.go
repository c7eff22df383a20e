package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/access"
	"github.com/quintave/quintave/internal/api"
	"github.com/quintave/quintave/internal/auth"
	"github.com/quintave/quintave/internal/certs"
	"github.com/quintave/quintave/internal/engine"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Migrate the database to the latest schema and serve the JSON API,
the Google sign-in routes and the RevenueCat webhook until interrupted.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStorage(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	sessions, err := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return err
	}

	eng := engine.New(store,
		engine.WithLogger(logger),
		engine.WithPolicy(access.Policy{TrialDays: cfg.Purchase.TrialDays}))

	opts := []api.Option{api.WithLogger(logger)}
	if cfg.OAuth.Enabled() {
		opts = append(opts, api.WithIdentityProvider(auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
		})))
	} else {
		logger.Warn("google oauth is not configured; sign-in routes will answer 500")
	}
	if cfg.Purchase.WebhookSecret == "" {
		logger.Warn("revenuecat webhook secret is not configured")
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.New(eng, sessions, api.Config{
		AppURL:         cfg.Server.AppURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WebhookSecret:  cfg.Purchase.WebhookSecret,
		EnforceAccess:  cfg.Purchase.Enforce,
		SecureCookies:  cfg.Server.SecureCookies || cfg.Server.TLSDir != "",
		DevHosts:       cfg.Server.TLSHosts,
	}, opts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.TLSDir != "" {
		tlsConfig, err := certs.NewFileManager(cfg.Server.TLSDir, cfg.Server.TLSHosts...).TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to prepare development certificate: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", httpServer.Addr),
			zap.Bool("tls", httpServer.TLSConfig != nil),
			zap.String("database", store.Dialect()),
			zap.Bool("enforce_access", cfg.Purchase.Enforce))
		if httpServer.TLSConfig != nil {
			errCh <- httpServer.ListenAndServeTLS("", "")
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
