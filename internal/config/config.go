package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/quintave/quintave/internal/common"
)

// EnvPrefix prefixes every environment override, e.g. QUINTAVE_SERVER_PORT.
const EnvPrefix = "QUINTAVE"

// Config is the resolved application configuration.
type Config struct {
	Logging  LoggingConfig
	Database DatabaseConfig
	Session  SessionConfig
	OAuth    OAuthConfig
	Purchase PurchaseConfig
	Server   ServerConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	AppURL          string
	TLSDir          string
	AllowedOrigins  []string
	TLSHosts        []string
	Port            int
	ShutdownTimeout time.Duration
	SecureCookies   bool
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// SessionConfig signs session tokens.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// OAuthConfig holds the Google client.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
}

// Enabled reports whether Google login is configured.
func (o OAuthConfig) Enabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != ""
}

// PurchaseConfig controls the trial and the purchase webhook.
type PurchaseConfig struct {
	WebhookSecret string
	TrialDays     int
	Enforce       bool
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string
	Format string
}

// envAliases binds the deployment's plain environment names alongside the
// prefixed ones.
var envAliases = map[string][]string{
	"server.port":                {"PORT"},
	"server.app_url":             {"APP_URL"},
	"database.dsn":               {"DATABASE_URL"},
	"session.secret":             {"JWT_SECRET"},
	"oauth.google_client_id":     {"GOOGLE_CLIENT_ID"},
	"oauth.google_client_secret": {"GOOGLE_CLIENT_SECRET"},
	"purchase.webhook_secret":    {"REVENUECAT_WEBHOOK_SECRET"},
	"server.allowed_origins":     {"CORS_ALLOWED_ORIGINS"},
	"database.driver":            nil,
	"database.max_open_conns":    nil,
	"session.ttl":                nil,
	"purchase.trial_days":        nil,
	"purchase.enforce":           nil,
	"server.secure_cookies":      nil,
	"server.shutdown_timeout":    nil,
	"server.tls_dir":             nil,
	"server.tls_hosts":           nil,
	"logging.level":              nil,
	"logging.format":             nil,
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "~/.local/share/quintave/quintave.db")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("session.ttl", 365*24*time.Hour)
	v.SetDefault("purchase.trial_days", 30)
	v.SetDefault("purchase.enforce", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(ExpandPath(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves the configuration from v. SetDefaults must have been
// called on v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			AppURL:          strings.TrimRight(v.GetString("server.app_url"), "/"),
			AllowedOrigins:  splitList(v.GetStringSlice("server.allowed_origins")),
			TLSDir:          ExpandPath(v.GetString("server.tls_dir")),
			TLSHosts:        splitList(v.GetStringSlice("server.tls_hosts")),
			SecureCookies:   v.GetBool("server.secure_cookies"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(v.GetString("database.driver")),
			DSN:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
		},
		Session: SessionConfig{
			Secret: v.GetString("session.secret"),
			TTL:    v.GetDuration("session.ttl"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     v.GetString("oauth.google_client_id"),
			GoogleClientSecret: v.GetString("oauth.google_client_secret"),
		},
		Purchase: PurchaseConfig{
			TrialDays:     v.GetInt("purchase.trial_days"),
			Enforce:       v.GetBool("purchase.enforce"),
			WebhookSecret: v.GetString("purchase.webhook_secret"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	// A postgres URL in DATABASE_URL implies the driver.
	if cfg.Database.Driver == "sqlite3" && isPostgresURL(cfg.Database.DSN) {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver == "sqlite3" || cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = ExpandPath(cfg.Database.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn", common.ErrMissingConfig)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("%w: database.max_open_conns must be positive", common.ErrInvalidConfig)
	}
	if c.Purchase.TrialDays < 0 {
		return fmt.Errorf("%w: purchase.trial_days must not be negative", common.ErrInvalidConfig)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", common.ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// ValidateServer additionally checks what the HTTP server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("%w: session.secret (JWT_SECRET)", common.ErrMissingConfig)
	}
	if c.Purchase.Enforce && c.Purchase.WebhookSecret == "" {
		return fmt.Errorf("%w: purchase.webhook_secret is required when purchase.enforce is set", common.ErrMissingConfig)
	}
	return nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
