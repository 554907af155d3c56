// Package config loads service configuration from KYC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration.
type Config struct {
	HTTPAddr       string        `env:"KYC_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr       string        `env:"KYC_GRPC_ADDR" envDefault:":9090"`
	PostgresDSN    string        `env:"KYC_PG_DSN"`
	AuthSecret     string        `env:"KYC_AUTH_SECRET"`
	SessionTTL     time.Duration `env:"KYC_SESSION_TTL" envDefault:"168h"`
	SecureCookies  bool          `env:"KYC_SECURE_COOKIES" envDefault:"false"`
	RateBurst      int           `env:"KYC_RATE_BURST" envDefault:"20"`
	RatePerSec     int           `env:"KYC_RATE_PER_SEC" envDefault:"10"`
	AllowedOrigins []string      `env:"KYC_ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string        `env:"KYC_LOG_LEVEL" envDefault:"info"`
	Provider       Provider      `envPrefix:"KYC_PROVIDER_"`

	// Only used without KYC_PG_DSN, to seed the in-memory store.
	DevAdminEmail    string `env:"KYC_DEV_ADMIN_EMAIL"`
	DevAdminPassword string `env:"KYC_DEV_ADMIN_PASSWORD"`
}

// Provider configures the upstream verification provider.
//
// ClientID/ClientSecret are optional: when both are set they take the place of
// the credentials stored in the settings table.
type Provider struct {
	BaseURL      string        `env:"BASE_URL" envDefault:"https://production.deepvue.tech"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
	RetryMax     int           `env:"RETRY_MAX" envDefault:"0"`
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
}

// HasStaticCredentials reports whether provider credentials come from the environment.
func (p Provider) HasStaticCredentials() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AuthSecret) == "" {
		errs = append(errs, errors.New("KYC_AUTH_SECRET is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("KYC_SESSION_TTL must be positive"))
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		errs = append(errs, errors.New("KYC_RATE_BURST and KYC_RATE_PER_SEC must be positive"))
	}
	if u, err := url.Parse(c.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("KYC_PROVIDER_BASE_URL is not an absolute URL: %q", c.Provider.BaseURL))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("KYC_PROVIDER_TIMEOUT must be positive"))
	}
	if c.Provider.RetryMax < 0 {
		errs = append(errs, errors.New("KYC_PROVIDER_RETRY_MAX must be >= 0"))
	}
	return errors.Join(errs...)
}
