// Package config loads the process configuration from environment variables.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is everything the process reads from its environment.
type Config struct {
	// SupabaseURL selects the backend: https://<project>.supabase.co, or
	// sqlite://<path> / sqlite::memory: for the embedded one.
	SupabaseURL string `env:"SUPABASE_URL,required,notEmpty"`
	// SupabaseKey is the project's anon key, or the embedded backend's signing key.
	SupabaseKey string `env:"SUPABASE_KEY,required,notEmpty"`

	// Host is the interface to listen on. The session is shared by every
	// caller that can reach the port, so only loopback is bound unless told
	// otherwise.
	Host           string   `env:"HOST" envDefault:"127.0.0.1"`
	Port           int      `env:"PORT" envDefault:"8080"`
	Environment    string   `env:"ENVIRONMENT" envDefault:"development"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	// TrustProxy makes the server take the client address from
	// X-Forwarded-For / X-Real-IP. Only set it behind a proxy that overwrites
	// those headers.
	TrustProxy     bool     `env:"TRUST_PROXY" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	SearchDebounce time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"0s"`
	SteamSyncDelay time.Duration `env:"STEAM_SYNC_DELAY" envDefault:"1.5s"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("config: ENVIRONMENT must be development or production, got %q", c.Environment)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.SearchDebounce < 0 || c.SteamSyncDelay < 0 || c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: durations must not be negative and HTTP_TIMEOUT must be positive")
	}
	for i, o := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
