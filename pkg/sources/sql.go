package sources

import (
	"context"
	"database/sql"
	"fmt"

	// Drivers registered for DSN-based construction.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/pkg/schema"
)

// SQL loads environment values from a two-column key/value query against a
// relational database. Supported drivers are "postgres" (lib/pq) and
// "mysql". Rows whose key does not match the environment variable name
// shape are skipped. Async-only.
type SQL struct {
	driver string
	db     *sql.DB
	query  string
}

// DefaultSQLQuery is used when no query is supplied.
const DefaultSQLQuery = "SELECT key, value FROM environment_variables"

// NewSQL opens a connection pool for the given driver and DSN.
func NewSQL(driver, dsn, query string) (*SQL, error) {
	if driver != "postgres" && driver != "mysql" {
		return nil, typerrors.ConfigError{
			Field:      "driver",
			Value:      driver,
			Message:    "unsupported SQL driver",
			Suggestion: "Use \"postgres\" or \"mysql\"",
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	return NewSQLWithDB(driver, db, query), nil
}

// NewSQLWithDB wraps an existing connection pool. Used by tests with a mock
// database.
func NewSQLWithDB(driver string, db *sql.DB, query string) *SQL {
	if query == "" {
		query = DefaultSQLQuery
	}
	return &SQL{driver: driver, db: db, query: query}
}

// Name implements resolver.Resolver.
func (s *SQL) Name() string {
	return "sql:" + s.driver
}

// Metadata implements resolver.Resolver.
func (s *SQL) Metadata() map[string]interface{} {
	return map[string]interface{}{"driver": s.driver}
}

// Load implements resolver.Resolver.
func (s *SQL) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		// NULL values are absent, not empty strings.
		if !value.Valid {
			continue
		}
		if schema.ValidName.MatchString(key) {
			out[key] = value.String
		}
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *SQL) Close() error {
	return s.db.Close()
}
