package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvAPIURL       = "CATX_API_URL"
	EnvDatabasePath = "CATX_DATABASE_PATH"
	EnvSessionStore = "CATX_SESSION_STORE"
)

// Session store kinds accepted by [SessionConfig.Store].
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	LoginPath      string  `toml:"login_path"`
	RefreshPath    string  `toml:"refresh_path"`
	LogoutPath     string  `toml:"logout_path"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	RateBurst      int     `toml:"rate_burst"`
}

// Timeout returns the per-request timeout, defaulting to 10s.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionConfig contains the session lifecycle knobs.
type SessionConfig struct {
	Store                string `toml:"store"`
	WarnThresholdSeconds int    `toml:"warn_threshold_seconds"`
	PollIntervalSeconds  int    `toml:"poll_interval_seconds"`
	RefreshTTLHours      int    `toml:"refresh_ttl_hours"`
}

// WarnThreshold is how long before expiry the user gets warned.
func (c SessionConfig) WarnThreshold() time.Duration {
	if c.WarnThresholdSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WarnThresholdSeconds) * time.Second
}

// PollInterval is the period of the session clock.
func (c SessionConfig) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RefreshTTL is the lifetime given to a stored refresh credential.
func (c SessionConfig) RefreshTTL() time.Duration {
	if c.RefreshTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.RefreshTTLHours) * time.Hour
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("%w: api.base_url must be http(s), got %q", ErrInvalidConfig, c.API.BaseURL)
	}
	if c.API.LoginPath == "" || c.API.RefreshPath == "" || c.API.LogoutPath == "" {
		return fmt.Errorf("%w: api auth paths must be set", ErrInvalidConfig)
	}
	switch c.Session.Store {
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown session.store %q", ErrInvalidConfig, c.Session.Store)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads the config at path when it exists (defaults otherwise),
// then applies .env and environment overrides.
//
// Precedence is environment > .env > file > defaults.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %w", ErrInvalidConfig, err)
	}

	ApplyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values with any CATX_* variables that are set.
func ApplyEnv(c *Config) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvSessionStore); v != "" {
		c.Session.Store = strings.ToLower(v)
	}
}
