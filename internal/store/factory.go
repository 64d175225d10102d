package store

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
	MySQLDSN    string
	DataDir     string
}

// ResolveMode maps "auto" (or empty) onto a concrete backend based on which
// connection settings are present.
func ResolveMode(cfg Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if mode != "" && mode != "auto" {
		return mode
	}
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		return ModePostgres
	case strings.TrimSpace(cfg.SQLitePath) != "":
		return ModeSQLite
	case strings.TrimSpace(cfg.MySQLDSN) != "":
		return ModeMySQL
	case strings.TrimSpace(cfg.DataDir) != "":
		return ModeFile
	default:
		return ModeMemory
	}
}

// NewStore opens the backend chosen by cfg and returns it with its mode.
func NewStore(ctx context.Context, cfg Config) (Store, string, error) {
	mode := ResolveMode(cfg)
	var (
		st  Store
		err error
	)
	switch mode {
	case ModeMemory:
		st = NewInMemoryStore()
	case ModeFile:
		st, err = NewFileStore(cfg.DataDir)
	case ModePostgres:
		st, err = NewPostgresStore(ctx, cfg.DatabaseURL)
	case ModeSQLite:
		st, err = NewSQLiteStore(ctx, cfg.SQLitePath)
	case ModeMySQL:
		st, err = NewMySQLStore(ctx, cfg.MySQLDSN)
	default:
		return nil, "", fmt.Errorf("unknown store backend %q (expected auto|memory|file|postgres|sqlite|mysql)", cfg.Backend)
	}
	if err != nil {
		return nil, "", err
	}
	return st, mode, nil
}
