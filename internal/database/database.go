package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Supported drivers. libsql needs cgo; sqlite is the pure-Go modernc build.
const (
	DriverLibSQL = "libsql"
	DriverSQLite = "sqlite"
)

// Open creates a SQLite connection and configures it for concurrent use:
// WAL journal mode, 5 s busy timeout, foreign keys enabled.
func Open(ctx context.Context, driver, path string) (*sql.DB, error) {
	var dsn string
	switch driver {
	case DriverLibSQL, "":
		driver, dsn = DriverLibSQL, "file:"+path
	case DriverSQLite:
		dsn = path
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// PRAGMAs below are per connection, and SQLite serialises writers
	// anyway; a single connection keeps both consistent.
	db.SetMaxOpenConns(1)

	// libSQL rejects Exec for PRAGMAs that return rows, but some PRAGMAs
	// (like foreign_keys=ON) return nothing. Use QueryContext and drain rows
	// to handle both cases uniformly.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		rows, err := db.QueryContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %s: %w", p, err)
		}
		rows.Close()
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}
