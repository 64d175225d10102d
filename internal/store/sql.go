package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type sqlDialect struct {
	driver string
	mode   string
	schema []string
	upsert string
}

var (
	sqliteDialect = sqlDialect{
		driver: "sqlite",
		mode:   ModeSQLite,
		schema: []string{
			"PRAGMA journal_mode=WAL",
			`CREATE TABLE IF NOT EXISTS kv_store (
				store_key TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		},
		upsert: `INSERT INTO kv_store (store_key, payload, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(store_key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
	}
	mysqlDialect = sqlDialect{
		driver: "mysql",
		mode:   ModeMySQL,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS kv_store (
				store_key VARCHAR(191) PRIMARY KEY,
				payload LONGTEXT NOT NULL,
				updated_at DATETIME(6) NOT NULL
			)`,
		},
		upsert: `INSERT INTO kv_store (store_key, payload, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE payload=VALUES(payload), updated_at=VALUES(updated_at)`,
	}
)

// SQLStore is the database/sql flavoured store shared by the SQLite and
// MySQL backends.
type SQLStore struct {
	db      *sqlx.DB
	dialect sqlDialect
}

// NewSQLiteStore opens (or creates) a SQLite database at path. ":memory:"
// works for tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	return openSQLStore(ctx, sqliteDialect, path)
}

// NewMySQLStore connects to MySQL using a go-sql-driver DSN.
func NewMySQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("mysql store: dsn is required")
	}
	return openSQLStore(ctx, mysqlDialect, dsn)
}

func openSQLStore(ctx context.Context, d sqlDialect, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", d.mode, err)
	}
	if d.driver == "sqlite" {
		// A single connection keeps ":memory:" databases coherent and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting %s db: %w", d.mode, err)
	}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %s schema failed on %q: %w", d.mode, stmt, err)
		}
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// Mode reports which backend this store talks to.
func (s *SQLStore) Mode() string { return s.dialect.mode }

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM kv_store WHERE store_key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(payload), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
