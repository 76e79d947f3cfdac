package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devblac/logsync/internal/config"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrMissingTable is returned when a target table is absent from the authoritative schema.
var ErrMissingTable = errors.New("missing table")

// Store wraps the database that holds the indexed event tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured database and applies pool settings.
func Open(cfg config.Database) (*Store, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	switch dialect {
	case SQLite:
		// Single writer; WAL lets readers proceed.
		db.SetMaxOpenConns(1)
		if err := configure(db); err != nil {
			db.Close()
			return nil, err
		}
	case Postgres:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if lt := cfg.ConnLifetime(); lt > 0 {
			db.SetConnMaxLifetime(lt)
		}
	}
	return &Store{db: db, dialect: dialect}, nil
}

// OpenSQLite opens an embedded database file.
func OpenSQLite(path string) (*Store, error) {
	return Open(config.Database{Driver: "sqlite", DSN: path})
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	return s.db.PingContext(ctx)
}

// DB exposes the handle for callers that manage their own statements.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports which SQL flavour the store speaks.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func configure(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

// MaxBlock returns the highest block_number stored in table. ok is false when
// the table is empty or does not exist yet.
func (s *Store) MaxBlock(ctx context.Context, table string) (block uint64, ok bool, err error) {
	var highest sql.NullInt64
	q := fmt.Sprintf("SELECT MAX(block_number) FROM %s", QuoteIdent(table))
	if err := s.db.QueryRowContext(ctx, q).Scan(&highest); err != nil {
		if isUndefinedTable(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("max block of %s: %w", table, err)
	}
	if !highest.Valid || highest.Int64 < 0 {
		return 0, false, nil
	}
	return uint64(highest.Int64), true, nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "no such table")
}
