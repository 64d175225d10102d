package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("key not found in store")

// Store persists opaque JSON documents under string keys. The board keeps its
// whole snapshot under a single key, so implementations only need
// last-write-wins semantics per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	ModeMemory   = "memory"
	ModeFile     = "file"
	ModePostgres = "postgres"
	ModeSQLite   = "sqlite"
	ModeMySQL    = "mysql"
)
