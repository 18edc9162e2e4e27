package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "LISTEN_ADDR", "DB_DRIVER", "DB_DSN", "LOG_LEVEL", "GROUP_SIZE", "MAX_ATTEMPTS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CLIENT_ID", "CLIENT_SECRET", "ADMINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "groups.db", cfg.DBDSN)
	assert.Equal(t, 4, cfg.GroupSize)
	assert.Equal(t, 1000, cfg.MaxAttempts)
	assert.False(t, cfg.Auth.Enabled())
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/groups")
	t.Setenv("GROUP_SIZE", "5")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("CLIENT_ID", "client")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("ADMINS", " a@example.com, ,b@example.com ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5, cfg.GroupSize)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.True(t, cfg.Auth.Enabled())
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Auth.Admins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "groups.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9090"
group_size: 3
max_attempts: 50
auth:
  admins: [tutor@example.com]
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_ATTEMPTS", "200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.GroupSize)
	assert.Equal(t, 200, cfg.MaxAttempts)
	assert.Equal(t, []string{"tutor@example.com"}, cfg.Auth.Admins)
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_WarnsOnBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROUP_SIZE", "four")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.GroupSize)
	assert.Len(t, cfg.Warnings, 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"driver", func(c *Config) { c.DBDriver = "mysql" }, `DB_DRIVER must be postgres or sqlite, got "mysql"`},
		{"dsn", func(c *Config) { c.DBDSN = "" }, "DB_DSN is required"},
		{"group size", func(c *Config) { c.GroupSize = 0 }, "GROUP_SIZE must be positive"},
		{"attempts", func(c *Config) { c.MaxAttempts = -1 }, "MAX_ATTEMPTS must be positive"},
		{"rate", func(c *Config) { c.RateLimitBurst = 0 }, "RATE_LIMIT_BURST must be positive"},
		{"secret", func(c *Config) { c.Auth = AuthConfig{ClientID: "x", Admins: []string{"a"}} }, "CLIENT_SECRET is required"},
		{"admins", func(c *Config) { c.Auth = AuthConfig{ClientID: "x", ClientSecret: "s"} }, "ADMINS is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	} {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
