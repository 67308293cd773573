// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Skryldev/userservice/db"
)

// Config is the resolved process configuration.
type Config struct {
	Port int

	DBDriver      string
	DatabaseURL   string
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	MaxOpenConns  int
	MaxIdleConns  int
	ConnMaxLife   time.Duration
	QueryTimeout  time.Duration
	SlowThreshold time.Duration

	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// Load reads every variable, applying defaults for the unset ones. The first
// malformed value is returned as an error naming the variable.
func Load() (Config, error) {
	c := Config{
		DBDriver:    envOr("DB_DRIVER", "sqlite3"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      envOr("DB_HOST", "localhost"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBSSLMode:   envOr("DB_SSLMODE", "disable"),
	}
	if c.DBName == "" && c.DBDriver == "sqlite3" {
		c.DBName = "users.db"
	}

	p := parser{}
	c.Port = p.int("PORT", 3000)
	c.DBPort = p.int("DB_PORT", 0)
	c.MaxOpenConns = p.int("DB_MAX_OPEN_CONNS", 25)
	c.MaxIdleConns = p.int("DB_MAX_IDLE_CONNS", 10)
	c.ConnMaxLife = p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	c.QueryTimeout = p.duration("DB_QUERY_TIMEOUT", 0)
	c.SlowThreshold = p.duration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond)
	c.LogLevel = p.level("LOG_LEVEL", slog.LevelInfo)
	c.ShutdownTimeout = p.duration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if p.err != nil {
		return Config{}, p.err
	}

	if c.Port < 1 || c.Port > 65535 {
		return Config{}, fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if _, err := db.LookupDriver(c.DBDriver); err != nil {
		return Config{}, fmt.Errorf("config: DB_DRIVER: %w", err)
	}
	return c, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// DriverOptions returns the structured connection parameters used when
// DATABASE_URL is empty.
func (c Config) DriverOptions() db.DriverOptions {
	return db.DriverOptions{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Database: c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// DBConfig returns the pool settings. DSN is left empty when DATABASE_URL is
// unset so db.OpenWithDriver builds it from DriverOptions.
func (c Config) DBConfig(hooks ...db.Hook) db.Config {
	return db.Config{
		DSN:             c.DatabaseURL,
		DriverName:      c.DBDriver,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLife,
		DefaultTimeout:  c.QueryTimeout,
		Hooks:           hooks,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parser keeps the first error so Load reads linearly.
type parser struct{ err error }

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" || p.err != nil {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.err = fmt.Errorf("config: %s: invalid integer %q", key, v)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" || p.err != nil {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.err = fmt.Errorf("config: %s: invalid duration %q", key, v)
		return def
	}
	return d
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" || p.err != nil {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
		p.err = fmt.Errorf("config: %s: invalid level %q", key, v)
		return def
	}
	return l
}
