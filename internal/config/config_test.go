package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintave/quintave/internal/common"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.NotContains(t, cfg.Database.DSN, "~")
	assert.Equal(t, 5, cfg.Database.MaxOpenConns)
	assert.Equal(t, 365*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 30, cfg.Purchase.TrialDays)
	assert.False(t, cfg.Purchase.Enforce)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.OAuth.Enabled())
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/quintave?sslmode=disable")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GOOGLE_CLIENT_ID", "client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "shh")
	t.Setenv("APP_URL", "https://quintave.example.com/")
	t.Setenv("REVENUECAT_WEBHOOK_SECRET", "rc")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.True(t, cfg.OAuth.Enabled())
	assert.Equal(t, "https://quintave.example.com", cfg.Server.AppURL)
	assert.Equal(t, "rc", cfg.Purchase.WebhookSecret)
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("QUINTAVE_SERVER_PORT", "9090")
	t.Setenv("QUINTAVE_PURCHASE_ENFORCE", "true")
	t.Setenv("QUINTAVE_SERVER_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("QUINTAVE_SERVER_TLS_DIR", "/tmp/quintave-tls")
	t.Setenv("QUINTAVE_SERVER_TLS_HOSTS", "192.168.1.20")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Purchase.Enforce)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/quintave-tls", cfg.Server.TLSDir)
	assert.Equal(t, []string{"192.168.1.20"}, cfg.Server.TLSHosts)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4000
  allowed_origins:
    - https://app.example.com
database:
  driver: sqlite3
  dsn: /tmp/q.db
purchase:
  trial_days: 14
logging:
  format: json
`), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/q.db", cfg.Database.DSN)
	assert.Equal(t, 14, cfg.Purchase.TrialDays)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate  func(c *Config)
		wantErr error
		name    string
	}{
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: common.ErrInvalidConfig},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: common.ErrMissingConfig},
		{name: "no connections", mutate: func(c *Config) { c.Database.MaxOpenConns = 0 }, wantErr: common.ErrInvalidConfig},
		{name: "negative trial", mutate: func(c *Config) { c.Purchase.TrialDays = -1 }, wantErr: common.ErrInvalidConfig},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: common.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(newViper())
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateServer(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.ValidateServer(), common.ErrMissingConfig)

	cfg.Session.Secret = "x"
	assert.NoError(t, cfg.ValidateServer())

	cfg.Purchase.Enforce = true
	assert.ErrorIs(t, cfg.ValidateServer(), common.ErrMissingConfig)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("QUINTAVE_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("QUINTAVE_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("QUINTAVE_TEST_DOTENV"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("QUINTAVE_TEST_DIR", "/srv")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "data.db"), ExpandPath("~/data.db"))
	assert.Equal(t, "/srv/q.db", ExpandPath("$QUINTAVE_TEST_DIR/q.db"))
}
