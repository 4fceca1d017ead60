// ABOUTME: Configuration loading and parsing for angler-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete angler-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	License  LicenseConfig  `yaml:"license"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is how long issued login tokens remain valid.
	TokenTTL time.Duration `yaml:"-"`

	// WSAuthTimeout bounds how long an unauthenticated realtime
	// connection may hold a slot before being closed.
	WSAuthTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TokenTTLRaw      string `yaml:"token_ttl"`
	WSAuthTimeoutRaw string `yaml:"ws_auth_timeout"`
}

// LicenseConfig holds external license-validation service configuration
type LicenseConfig struct {
	URL       string `yaml:"url"`
	ProjectID string `yaml:"project_id"`

	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// AdminConfig holds admin panel configuration
type AdminConfig struct {
	// PasswordHash is the bcrypt hash of the admin password.
	// Generate with: angler-gateway hash-password
	PasswordHash string `yaml:"password_hash"`

	// BaseURL is the external URL for the admin UI
	BaseURL string `yaml:"base_url"`
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

// Defaults applied when the corresponding field is absent from the file.
const (
	DefaultTokenTTL       = 30 * 24 * time.Hour
	DefaultWSAuthTimeout  = 30 * time.Second
	DefaultLicenseTimeout = 10 * time.Second
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.License.URL == "" {
		return fmt.Errorf("license.url is required")
	}

	if c.License.ProjectID == "" {
		return fmt.Errorf("license.project_id is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Auth.TokenTTL = DefaultTokenTTL
	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	cfg.Auth.WSAuthTimeout = DefaultWSAuthTimeout
	if cfg.Auth.WSAuthTimeoutRaw != "" {
		cfg.Auth.WSAuthTimeout, err = time.ParseDuration(cfg.Auth.WSAuthTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ws_auth_timeout %q: %w", cfg.Auth.WSAuthTimeoutRaw, err)
		}
	}

	cfg.License.Timeout = DefaultLicenseTimeout
	if cfg.License.TimeoutRaw != "" {
		cfg.License.Timeout, err = time.ParseDuration(cfg.License.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing license timeout %q: %w", cfg.License.TimeoutRaw, err)
		}
	}

	return nil
}
