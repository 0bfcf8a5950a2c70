package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	APIURL       string        `envconfig:"API_URL" default:"http://localhost:5000"`
	APIUsersPath string        `envconfig:"API_USERS_PATH" default:"/api/users"`
	APILoginPath string        `envconfig:"API_LOGIN_PATH" default:"/api/auth/login"`
	APITimeout   time.Duration `envconfig:"API_TIMEOUT" default:"30s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	// PGDSN enables the login audit trail when set.
	PGDSN string `envconfig:"PG_DSN"`

	ListDebounce     time.Duration `envconfig:"LIST_DEBOUNCE" default:"3s"`
	ListIdleTTL      time.Duration `envconfig:"LIST_IDLE_TTL" default:"30m"`
	OverviewCacheTTL time.Duration `envconfig:"OVERVIEW_CACHE_TTL" default:"30s"`
	LoginRateLimit   int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	if c.APIURL == "" {
		return errors.New("api url must be provided")
	}
	if c.ListDebounce < 0 {
		return errors.New("list debounce must not be negative")
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("login rate limit must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AuditEnabled reports whether logins are recorded in postgres.
func (c *Config) AuditEnabled() bool {
	return c != nil && c.PGDSN != ""
}
