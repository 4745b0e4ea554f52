package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Security      SecurityConfig
	Token         TokenConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
	Bootstrap     BootstrapConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         string        `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string `envconfig:"DB_HOST" default:"localhost"`
	Port         string `envconfig:"DB_PORT" default:"5432"`
	User         string `envconfig:"DB_USER" default:"authgrid"`
	Password     string `envconfig:"DB_PASSWORD" required:"true"`
	Database     string `envconfig:"DB_NAME" default:"authgrid"`
	SSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
}

// SecurityConfig holds password hashing and policy configuration
type SecurityConfig struct {
	BcryptCost        int `envconfig:"BCRYPT_COST" default:"10"`
	PasswordMinLength int `envconfig:"PASSWORD_MIN_LENGTH" default:"8"`
}

// TokenConfig holds JWT signing configuration. Both secrets are required:
// the process refuses to start without explicit signing material.
type TokenConfig struct {
	AccessSecret    string        `envconfig:"JWT_ACCESS_SECRET" required:"true"`
	RefreshSecret   string        `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	AccessLifetime  time.Duration `envconfig:"JWT_ACCESS_LIFETIME" default:"1h"`
	RefreshLifetime time.Duration `envconfig:"JWT_REFRESH_LIFETIME" default:"168h"`
	Issuer          string        `envconfig:"JWT_ISSUER" default:"authgrid"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"LOG_FORMAT" default:"json"`
	OTELEnabled    bool   `envconfig:"OTEL_ENABLED" default:"false"`
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"authgrid"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION" default:"0.1.0"`
}

// RateLimitConfig holds rate limiting configuration for the auth endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATELIMIT_RPS" default:"10"`
	Burst             int     `envconfig:"RATELIMIT_BURST" default:"20"`
}

// BootstrapConfig holds initial super admin provisioning. Bootstrap runs
// only when the email is set and no super admin exists yet.
type BootstrapConfig struct {
	AdminEmail    string `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	if len(c.Token.AccessSecret) < 32 {
		return errors.New("JWT_ACCESS_SECRET must be at least 32 bytes")
	}
	if len(c.Token.RefreshSecret) < 32 {
		return errors.New("JWT_REFRESH_SECRET must be at least 32 bytes")
	}
	if c.Token.AccessSecret == c.Token.RefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}
