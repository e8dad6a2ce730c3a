// ABOUTME: Configuration loading and parsing for auphere-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete auphere-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Upstreams UpstreamsConfig `yaml:"upstreams"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds the plan store configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

// UpstreamsConfig holds the backing service endpoints
type UpstreamsConfig struct {
	Places PlacesConfig `yaml:"places"`
	Agent  AgentConfig  `yaml:"agent"`
}

// PlacesConfig holds the places service connection settings.
// AdminToken is sent as X-Admin-Token on every request when set.
type PlacesConfig struct {
	BaseURL     string `yaml:"base_url"`
	DefaultCity string `yaml:"default_city"`
	AdminToken  string `yaml:"admin_token"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// AgentConfig holds the agent service connection settings.
// Streaming queries run far longer than plain ones, so the two
// operations carry separate timeouts.
type AgentConfig struct {
	BaseURL string `yaml:"base_url"`

	QueryTimeout     time.Duration `yaml:"-"`
	QueryTimeoutRaw  string        `yaml:"query_timeout"`
	StreamTimeout    time.Duration `yaml:"-"`
	StreamTimeoutRaw string        `yaml:"stream_timeout"`
}

// GeocodingConfig holds the geocoding provider settings. The API key
// is optional; when empty the geocoding endpoints report the service
// as not configured instead of failing startup.
type GeocodingConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// CORSConfig holds cross-origin settings for browser callers
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-client rate limiting settings
type RateLimitConfig struct {
	Enabled  bool `yaml:"enabled"`
	Requests int  `yaml:"requests"`

	Window    time.Duration `yaml:"-"`
	WindowRaw string        `yaml:"window"`
}

// CacheConfig holds the geocoding response cache settings
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`

	TTL    time.Duration `yaml:"-"`
	TTLRaw string        `yaml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration with the stock deployment values.
// Tests and the fake-upstreams simulator start from these.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        "0.0.0.0:8000",
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "auphere-gateway.db",
		},
		Upstreams: UpstreamsConfig{
			Places: PlacesConfig{
				BaseURL:     "http://127.0.0.1:8002",
				DefaultCity: "Zaragoza",
				Timeout:     10 * time.Second,
			},
			Agent: AgentConfig{
				BaseURL:       "http://localhost:8001",
				QueryTimeout:  30 * time.Second,
				StreamTimeout: 180 * time.Second,
			},
		},
		Geocoding: GeocodingConfig{
			BaseURL: "https://maps.googleapis.com/maps/api",
			Timeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   time.Minute,
		},
		Cache: CacheConfig{
			MaxEntries: 4096,
			TTL:        time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Fields absent from the file fall back to Default() values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
// Absence of a required value is a startup failure, never a per-request one.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Upstreams.Places.BaseURL == "" {
		return fmt.Errorf("upstreams.places.base_url is required")
	}

	if c.Upstreams.Agent.BaseURL == "" {
		return fmt.Errorf("upstreams.agent.base_url is required")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}

	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate_limit.requests must be positive when rate limiting is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout, "server.shutdown_timeout"},
		{cfg.Upstreams.Places.TimeoutRaw, &cfg.Upstreams.Places.Timeout, "upstreams.places.timeout"},
		{cfg.Upstreams.Agent.QueryTimeoutRaw, &cfg.Upstreams.Agent.QueryTimeout, "upstreams.agent.query_timeout"},
		{cfg.Upstreams.Agent.StreamTimeoutRaw, &cfg.Upstreams.Agent.StreamTimeout, "upstreams.agent.stream_timeout"},
		{cfg.Geocoding.TimeoutRaw, &cfg.Geocoding.Timeout, "geocoding.timeout"},
		{cfg.RateLimit.WindowRaw, &cfg.RateLimit.Window, "rate_limit.window"},
		{cfg.Cache.TTLRaw, &cfg.Cache.TTL, "cache.ttl"},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.key, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
