// Package database connects to the PostgreSQL store that holds fleet
// records, compatibility history and feature flag overrides.
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration.
type Config struct {
	// URL is a full connection string. When set it replaces the discrete
	// connection fields below; pool settings still apply.
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration

	// ConnectTimeout bounds how long Connect keeps retrying the first ping.
	ConnectTimeout time.Duration
}

// ConfigFromEnv reads DATABASE_URL and the DB_* variables. Malformed
// numbers and durations are errors rather than silent defaults.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		User:     getEnvOrDefault("DB_USER", "fleetops"),
		Password: getEnvOrDefault("DB_PASSWORD", "localdev"),
		Database: getEnvOrDefault("DB_NAME", "fleetops"),
		SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
	}

	var errs []error
	var err error
	if cfg.Port, err = strconv.Atoi(getEnvOrDefault("DB_PORT", "5432")); err != nil {
		errs = append(errs, fmt.Errorf("DB_PORT: %w", err))
	}
	if cfg.MaxConns, err = envInt32("DB_MAX_CONNS", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.MinConns, err = envInt32("DB_MIN_CONNS", 2); err != nil {
		errs = append(errs, err)
	}
	if cfg.ConnMaxLifetime, err = time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", "5m")); err != nil {
		errs = append(errs, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err))
	}
	if cfg.ConnectTimeout, err = time.ParseDuration(getEnvOrDefault("DB_CONNECT_TIMEOUT", "30s")); err != nil {
		errs = append(errs, fmt.Errorf("DB_CONNECT_TIMEOUT: %w", err))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, cfg.Validate()
}

// Validate checks the pool bounds and, without a URL, the port.
func (c Config) Validate() error {
	var errs []error
	if c.URL == "" && (c.Port < 1 || c.Port > 65535) {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxConns < 1 {
		errs = append(errs, fmt.Errorf("max conns must be positive, got %d", c.MaxConns))
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		errs = append(errs, fmt.Errorf("min conns must be between 0 and %d, got %d", c.MaxConns, c.MinConns))
	}
	return errors.Join(errs...)
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Redacted returns the connection string with the password masked.
func (c Config) Redacted() string {
	u, err := url.Parse(c.ConnectionString())
	if err != nil {
		return "invalid connection string"
	}
	return u.Redacted()
}

// Connect creates a connection pool and pings it, retrying with exponential
// backoff until ConnectTimeout passes. Server-side rejections such as a bad
// password are not retried.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = cfg.ConnectTimeout

	ping := func() error {
		err := pool.Ping(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

//go:embed schema.sql
var schema string

// Schema returns the DDL for the fleet and feature flag tables.
func Schema() string {
	return schema
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func envInt32(key string, defaultValue int32) (int32, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return int32(n), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
