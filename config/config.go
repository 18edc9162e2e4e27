// Package config loads server configuration from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"groups/solver"
)

// AuthConfig holds Google sign-in settings. Auth is disabled when ClientID
// is empty.
type AuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"` // HMAC key for session tokens
	Admins       []string `yaml:"admins"`
}

func (a *AuthConfig) Enabled() bool {
	return a.ClientID != ""
}

type Config struct {
	ListenAddr string `yaml:"listen_addr"` // default ":8080"
	DBDriver   string `yaml:"db_driver"`   // postgres or sqlite
	DBDSN      string `yaml:"db_dsn"`
	LogLevel   string `yaml:"log_level"` // debug, info, warn, error

	GroupSize   int `yaml:"group_size"`
	MaxAttempts int `yaml:"max_attempts"`

	// Rate limiting of generation routes, per client IP.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	Auth AuthConfig `yaml:"auth"`

	// Warnings collects non-fatal problems found while loading. They are
	// logged once the logger exists.
	Warnings []string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		ListenAddr:     ":8080",
		DBDriver:       "sqlite",
		DBDSN:          "groups.db",
		LogLevel:       "info",
		GroupSize:      solver.DefaultGroupSize,
		MaxAttempts:    solver.DefaultMaxAttempts,
		RateLimitRPS:   2,
		RateLimitBurst: 10,
	}
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load starts from Default, applies CONFIG_FILE if set, then environment
// variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBDSN, "DB_DSN")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Auth.ClientID, "CLIENT_ID")
	setString(&c.Auth.ClientSecret, "CLIENT_SECRET")

	c.setInt(&c.GroupSize, "GROUP_SIZE")
	c.setInt(&c.MaxAttempts, "MAX_ATTEMPTS")
	c.setInt(&c.RateLimitBurst, "RATE_LIMIT_BURST")
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		} else {
			c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring RATE_LIMIT_RPS=%q: not a number", v))
		}
	}

	if v := os.Getenv("ADMINS"); v != "" {
		var admins []string
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				admins = append(admins, a)
			}
		}
		c.Auth.Admins = admins
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring %s=%q: not an integer", key, v))
		return
	}
	*dst = n
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if c.GroupSize < 1 {
		errs = append(errs, fmt.Errorf("GROUP_SIZE must be positive, got %d", c.GroupSize))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("MAX_ATTEMPTS must be positive, got %d", c.MaxAttempts))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.Auth.Enabled() {
		if c.Auth.ClientSecret == "" {
			errs = append(errs, errors.New("CLIENT_SECRET is required when CLIENT_ID is set"))
		}
		if len(c.Auth.Admins) == 0 {
			errs = append(errs, errors.New("ADMINS is required when CLIENT_ID is set"))
		}
	}
	return errors.Join(errs...)
}
