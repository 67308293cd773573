package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "DB_DRIVER", "DATABASE_URL", "DB_NAME", "DB_MAX_OPEN_CONNS",
		"DB_QUERY_TIMEOUT", "LOG_LEVEL", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Port != 3000 || c.Addr() != ":3000" {
		t.Errorf("port = %d, addr = %q", c.Port, c.Addr())
	}
	if c.DBDriver != "sqlite3" || c.DBName != "users.db" {
		t.Errorf("driver = %q, name = %q", c.DBDriver, c.DBName)
	}
	if c.MaxOpenConns != 25 || c.MaxIdleConns != 10 {
		t.Errorf("pool = %d/%d", c.MaxOpenConns, c.MaxIdleConns)
	}
	if c.QueryTimeout != 0 || c.SlowThreshold != 200*time.Millisecond {
		t.Errorf("timeouts = %v/%v", c.QueryTimeout, c.SlowThreshold)
	}
	if c.LogLevel != slog.LevelInfo || c.ShutdownTimeout != 10*time.Second {
		t.Errorf("level = %v, shutdown = %v", c.LogLevel, c.ShutdownTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "users")
	t.Setenv("DB_QUERY_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Addr() != ":8081" || c.QueryTimeout != 3*time.Second || c.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected config: %+v", c)
	}

	opts := c.DriverOptions()
	if opts.Host != "db" || opts.Port != 5433 || opts.Database != "users" {
		t.Fatalf("unexpected driver options: %+v", opts)
	}
	cfg := c.DBConfig()
	if cfg.DriverName != "pgx" || cfg.DefaultTimeout != 3*time.Second || cfg.DSN != "" {
		t.Fatalf("unexpected db config: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "http"},
		{"PORT", "70000"},
		{"DB_MAX_OPEN_CONNS", "-1"},
		{"DB_CONN_MAX_LIFETIME", "forever"},
		{"SHUTDOWN_TIMEOUT", "10"},
		{"LOG_LEVEL", "loud"},
		{"DB_DRIVER", "oracle"},
	}
	for _, test := range tests {
		t.Run(test.key+"="+test.value, func(t *testing.T) {
			t.Setenv(test.key, test.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.key) {
				t.Fatalf("error %q does not name %s", err, test.key)
			}
		})
	}
}
