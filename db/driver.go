// Pluggable driver adapters. Each adapter builds a DSN from structured
// options, so configuration can name a host and database instead of a
// driver-specific connection string.

package db

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" with database/sql
)

// ─────────────────────────────────────────────────────────────────────────────
// Driver interface
// ─────────────────────────────────────────────────────────────────────────────

// Driver encapsulates database-specific behaviour.
type Driver interface {
	// Name returns the name passed to sql.Register, e.g. "pgx", "mysql".
	Name() string

	// DSN converts structured options into a driver DSN string.
	DSN(opts DriverOptions) (string, error)

	// ErrorMapper returns a mapper tuned to this driver's error types.
	ErrorMapper() ErrorMapper
}

// DriverOptions carries the common connection parameters in a
// driver-agnostic form.
type DriverOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-full", etc.
	// Extra holds driver-specific key/value parameters.
	Extra map[string]string
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver registry
// ─────────────────────────────────────────────────────────────────────────────

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver adds a Driver to the registry.
// Panics if a driver with the same name is already registered.
func RegisterDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, ok := drivers[d.Name()]; ok {
		panic(fmt.Sprintf("userservice/db: driver %q already registered", d.Name()))
	}
	drivers[d.Name()] = d
}

// LookupDriver returns the registered Driver by name or an error.
func LookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("userservice/db: driver %q not registered", name)
	}
	return d, nil
}

// BuildDSN renders opts through the named driver's DSN builder.
func BuildDSN(driverName string, opts DriverOptions) (string, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return "", err
	}
	dsn, err := drv.DSN(opts)
	if err != nil {
		return "", fmt.Errorf("userservice/db: DSN construction failed: %w", err)
	}
	return dsn, nil
}

// OpenWithDriver opens a DB using a registered Driver. When cfg.DSN is empty
// it is built from driverOpts.
func OpenWithDriver(driverName string, driverOpts DriverOptions, cfg Config) (*DB, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		if cfg.DSN, err = BuildDSN(driverName, driverOpts); err != nil {
			return nil, err
		}
	}
	cfg.DriverName = drv.Name()

	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	d.SetErrorMapper(ChainMapper(drv.ErrorMapper(), DefaultErrorMapper()))
	return d, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL adapters (lib/pq and pgx share the URL form)
// ─────────────────────────────────────────────────────────────────────────────

// PostgresDriver is the lib/pq adapter.
type PostgresDriver struct{}

func (PostgresDriver) Name() string                         { return "postgres" }
func (PostgresDriver) DSN(o DriverOptions) (string, error) { return postgresURL(o) }
func (PostgresDriver) ErrorMapper() ErrorMapper            { return ErrorMapperFunc(mapPQOnly) }

// PgxDriver is the jackc/pgx stdlib adapter.
type PgxDriver struct{}

func (PgxDriver) Name() string                         { return "pgx" }
func (PgxDriver) DSN(o DriverOptions) (string, error) { return postgresURL(o) }
func (PgxDriver) ErrorMapper() ErrorMapper            { return ErrorMapperFunc(mapPGXOnly) }

func postgresURL(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("postgres driver: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	for k, v := range o.Extra {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(o.Host, strconv.Itoa(port)),
		Path:     "/" + o.Database,
		RawQuery: q.Encode(),
	}
	if o.User != "" {
		u.User = url.UserPassword(o.User, o.Password)
	}
	return u.String(), nil
}

func mapPQOnly(err error) error {
	if mapped := mapPQError(err); mapped != nil {
		return mapped
	}
	return err
}

func mapPGXOnly(err error) error {
	if mapped := mapPGXError(err); mapped != nil {
		return mapped
	}
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// MySQL adapter
// ─────────────────────────────────────────────────────────────────────────────

// MySQLDriver is the go-sql-driver/mysql adapter.
type MySQLDriver struct{}

func (MySQLDriver) Name() string { return "mysql" }

func (MySQLDriver) DSN(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("mysql driver: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 3306
	}
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(o.Host, strconv.Itoa(port))
	c.DBName = o.Database
	c.ParseTime = true
	if len(o.Extra) > 0 {
		c.Params = make(map[string]string, len(o.Extra))
		for k, v := range o.Extra {
			c.Params[k] = v
		}
	}
	return c.FormatDSN(), nil
}

func (MySQLDriver) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if mapped := mapMySQLError(err); mapped != nil {
			return mapped
		}
		return err
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// SQLite adapter
// ─────────────────────────────────────────────────────────────────────────────

// SQLiteDriver is the mattn/go-sqlite3 adapter.
type SQLiteDriver struct{}

func (SQLiteDriver) Name() string { return "sqlite3" }

func (SQLiteDriver) DSN(o DriverOptions) (string, error) {
	if o.Database == "" {
		return "", fmt.Errorf("sqlite3 driver: Database (file path) is required")
	}
	if len(o.Extra) == 0 {
		return o.Database, nil
	}
	q := url.Values{}
	for k, v := range o.Extra {
		q.Set(k, v)
	}
	return "file:" + o.Database + "?" + q.Encode(), nil
}

func (SQLiteDriver) ErrorMapper() ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if mapped := mapSQLiteError(err); mapped != nil {
			return mapped
		}
		return err
	})
}

func init() {
	RegisterDriver(PostgresDriver{})
	RegisterDriver(PgxDriver{})
	RegisterDriver(MySQLDriver{})
	RegisterDriver(SQLiteDriver{})
}
