// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const minSecretLength = 16

// Config holds everything main needs to build the service graph.
// It is constructed once at startup and read-only afterwards.
type Config struct {
	Port           int           `env:"PORT"            envDefault:"5000"`
	StoreDriver    string        `env:"STORE_DRIVER"    envDefault:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	DB             DBConfig
	SQLitePath     string        `env:"SQLITE_PATH"     envDefault:"./eventscheduler.db"`
	JWTSecret      string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL       time.Duration `env:"TOKEN_TTL"       envDefault:"24h"`
	BcryptCost     int           `env:"BCRYPT_COST"     envDefault:"10"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT"      envDefault:"console"`
	StaticDir      string        `env:"STATIC_DIR"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// DBConfig holds discrete PostgreSQL connection settings, used when
// DATABASE_URL is not set.
type DBConfig struct {
	Host           string `env:"DB_HOST"     envDefault:"localhost"`
	Port           string `env:"DB_PORT"     envDefault:"5432"`
	User           string `env:"DB_USER"     envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name           string `env:"DB_NAME"     envDefault:"eventscheduler"`
	SSLMode        string `env:"DB_SSLMODE"  envDefault:"disable"`
	ConnectTimeout int    `env:"DB_CONNECT_TIMEOUT" envDefault:"5"`
}

// DSN builds a libpq-compatible connection string.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("connect_timeout", fmt.Sprint(c.ConnectTimeout))
	u.RawQuery = q.Encode()
	return u.String()
}

// PostgresDSN returns DATABASE_URL when set, otherwise the DSN assembled
// from the DB_* variables.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DB.DSN()
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.StoreDriver))
	}
	if c.StoreDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
	}
	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
