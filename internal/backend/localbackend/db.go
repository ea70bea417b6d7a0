// Package localbackend is a reference implementation of the backend
// collaborator interfaces over a local SQL store. It serves the demo CLI
// and integration-grade tests, and publishes the same change events a
// remote push gateway would.
package localbackend

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/haggle-app/syncengine/internal/logging"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBConfig configures the underlying SQL store.
type DBConfig struct {
	// Driver selects the SQL driver (sqlite, postgres).
	Driver string

	// DSN is the data source name. For sqlite this is the database file
	// path; busy-timeout and WAL pragmas are appended automatically.
	DSN string

	// MaxConnections limits the connection pool.
	MaxConnections int

	// BusyTimeoutMs is how long sqlite waits for a locked database.
	BusyTimeoutMs int
}

// DB wraps the SQL handle with driver awareness for placeholder rebinding.
type DB struct {
	*sql.DB

	driver string
	logger zerolog.Logger
}

// Open opens the store, verifies connectivity and bootstraps the schema.
func Open(cfg DBConfig) (*DB, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	dsn := cfg.DSN
	if driver == DriverSQLite {
		busyTimeout := cfg.BusyTimeoutMs
		if busyTimeout <= 0 {
			busyTimeout = 5000
		}
		dsn = fmt.Sprintf(
			"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)",
			cfg.DSN, busyTimeout,
		)
	}

	handle, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConnections > 0 {
		handle.SetMaxOpenConns(cfg.MaxConnections)
	}
	if err := handle.Ping(); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:     handle,
		driver: driver,
		logger: logging.Component("localbackend"),
	}

	if err := db.ensureSchema(); err != nil {
		_ = handle.Close()
		return nil, err
	}

	db.logger.Debug().
		Str("driver", driver).
		Str("dsn", logging.RedactDSN(cfg.DSN)).
		Msg("store opened")

	return db, nil
}

// Driver returns the active SQL driver name.
func (db *DB) Driver() string {
	return db.driver
}

// rebind converts ? placeholders to the driver's positional form.
// Queries are written with ? throughout; postgres needs $1..$n.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var builder strings.Builder
	builder.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&builder, "$%d", n)
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
