package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultIdentityURL  = "https://functions.poehali.dev/b438a7ab-6531-4658-9ce9-0e90e4b0eb1e"
	DefaultDocumentsURL = "https://functions.poehali.dev/d940a7a8-1b92-42cb-bd0e-91edd2859dbb"
	DefaultEventsURL    = "https://functions.poehali.dev/01750521-d47a-4fbc-b622-02c2b57bd583"
	DefaultReportsURL   = "https://functions.poehali.dev/ebb81c72-3e10-4e18-a859-4257bfd0c0cc"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Endpoints     EndpointsConfig     `mapstructure:"endpoints"`
	Client        ClientConfig        `mapstructure:"client"`
	Session       SessionConfig       `mapstructure:"session"`
	Reports       ReportsConfig       `mapstructure:"reports"`
	Reminders     RemindersConfig     `mapstructure:"reminders"`
	Stub          StubConfig          `mapstructure:"stub"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// EndpointsConfig holds the remote function URLs. They are opaque to the client.
type EndpointsConfig struct {
	Identity  string `mapstructure:"identity"`
	Documents string `mapstructure:"documents"`
	Events    string `mapstructure:"events"`
	Reports   string `mapstructure:"reports"`
}

type ClientConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	ValidateResponses bool          `mapstructure:"validate_responses"`
}

type SessionConfig struct {
	Driver string `mapstructure:"driver"`
	Source string `mapstructure:"source"`
}

type ReportsConfig struct {
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type RemindersConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type StubConfig struct {
	Port         int           `mapstructure:"port"`
	TokenSecret  string        `mapstructure:"token_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	SeedPassword string        `mapstructure:"seed_password"`
	BCryptCost   int           `mapstructure:"bcrypt_cost"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig is what an empty config.yml resolves to.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			BaseURL:           "http://localhost:8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		Endpoints: EndpointsConfig{
			Identity:  DefaultIdentityURL,
			Documents: DefaultDocumentsURL,
			Events:    DefaultEventsURL,
			Reports:   DefaultReportsURL,
		},
		Client: ClientConfig{
			Timeout:           15 * time.Second,
			ValidateResponses: true,
		},
		Session: SessionConfig{
			Driver: "sqlite",
			Source: "asubt_session.db",
		},
		Reports: ReportsConfig{
			CacheSize: 16,
			CacheTTL:  5 * time.Minute,
		},
		Reminders: RemindersConfig{
			Enabled:  true,
			Schedule: "@hourly",
		},
		Stub: StubConfig{
			Port:         8090,
			TokenSecret:  "asubt-stub-secret-change-me-0123456789",
			TokenTTL:     24 * time.Hour,
			SeedPassword: "admin123",
			BCryptCost:   10,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// LoadConfigFromEnv builds the configuration for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Server.Port = getEnvAsInt("HTTP_SERVER_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("HTTP_SERVER_BASE_URL", cfg.Server.BaseURL)

	cfg.Endpoints.Identity = getEnv("ENDPOINTS_IDENTITY", cfg.Endpoints.Identity)
	cfg.Endpoints.Documents = getEnv("ENDPOINTS_DOCUMENTS", cfg.Endpoints.Documents)
	cfg.Endpoints.Events = getEnv("ENDPOINTS_EVENTS", cfg.Endpoints.Events)
	cfg.Endpoints.Reports = getEnv("ENDPOINTS_REPORTS", cfg.Endpoints.Reports)

	cfg.Client.Timeout = getEnvAsDuration("CLIENT_TIMEOUT", cfg.Client.Timeout)
	cfg.Client.ValidateResponses = getEnvAsBool("CLIENT_VALIDATE_RESPONSES", cfg.Client.ValidateResponses)

	cfg.Session.Driver = getEnv("SESSION_DRIVER", cfg.Session.Driver)
	cfg.Session.Source = getEnv("SESSION_SOURCE", cfg.Session.Source)

	cfg.Reports.CacheSize = getEnvAsInt("REPORTS_CACHE_SIZE", cfg.Reports.CacheSize)
	cfg.Reports.CacheTTL = getEnvAsDuration("REPORTS_CACHE_TTL", cfg.Reports.CacheTTL)

	cfg.Reminders.Enabled = getEnvAsBool("REMINDERS_ENABLED", cfg.Reminders.Enabled)
	cfg.Reminders.Schedule = getEnv("REMINDERS_SCHEDULE", cfg.Reminders.Schedule)

	cfg.Stub.Port = getEnvAsInt("STUB_PORT", cfg.Stub.Port)
	cfg.Stub.TokenSecret = getEnv("STUB_TOKEN_SECRET", cfg.Stub.TokenSecret)
	cfg.Stub.TokenTTL = getEnvAsDuration("STUB_TOKEN_TTL", cfg.Stub.TokenTTL)
	cfg.Stub.SeedPassword = getEnv("STUB_SEED_PASSWORD", cfg.Stub.SeedPassword)

	cfg.Observability.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", cfg.Observability.Metrics.Enabled)
	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Endpoints.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("endpoints config: %v", err))
	}

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if err := c.Reports.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("reports config: %v", err))
	}

	if err := c.Reminders.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("reminders config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *EndpointsConfig) Validate() error {
	for name, raw := range map[string]string{
		"identity":  c.Identity,
		"documents": c.Documents,
		"events":    c.Events,
		"reports":   c.Reports,
	} {
		if raw == "" {
			return fmt.Errorf("%s url is required", name)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s url %q", name, raw)
		}
	}
	return nil
}

func (c *SessionConfig) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	return nil
}

func (c *ReportsConfig) Validate() error {
	if c.CacheSize <= 0 {
		return errors.New("cache_size must be positive")
	}
	return nil
}

func (c *RemindersConfig) Validate() error {
	if c.Enabled && c.Schedule == "" {
		return errors.New("schedule is required when reminders are enabled")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid format %q", c.Format)
	}
	return nil
}
