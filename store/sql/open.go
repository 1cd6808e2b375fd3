package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ClientConfig is the subset of connection configuration the persistence
// client needs. core treasury configs satisfy it through cfgx bindings.
type ClientConfig interface {
	GetDebug() bool
	GetDriver() string
	GetServer() string
	GetPingTimeout() time.Duration
	GetOtelIdentifier() string
}

// OpenDB opens the database for the configured driver and returns it with
// the matching bun dialect. sqlite connections are pinned to a single open
// connection so shared in-memory databases survive pool churn.
func OpenDB(driver, dsn string) (*sql.DB, schema.Dialect, error) {
	driver = strings.TrimSpace(strings.ToLower(driver))
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, nil, fmt.Errorf("sqlstore: connection string is required")
	}

	switch driver {
	case DriverPostgres:
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		return db, pgdialect.New(), nil
	case DriverSQLite:
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		return db, sqlitedialect.New(), nil
	default:
		return nil, nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// NewPersistenceClient opens the configured database and wraps it in a
// persistence client ready for migration registration.
func NewPersistenceClient(cfg ClientConfig) (*persistence.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlstore: client config is required")
	}
	db, dialect, err := OpenDB(cfg.GetDriver(), cfg.GetServer())
	if err != nil {
		return nil, err
	}
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return client, nil
}
