package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := st.Get(ctx, "cst_data"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	first := []byte(`{"lists":{},"pendingTasks":[],"progressPoints":1}`)
	if err := st.Set(ctx, "cst_data", first); err != nil {
		t.Fatalf("Set(first) error = %v", err)
	}
	// Keys are in neither sorted nor length order. Backends return the
	// bytes untouched.
	second := []byte(`{"lists":{"Stream Goals":{"tasks":[]},"Viewers":{"tasks":[]},"B":{"tasks":[]}},"pendingTasks":[],"progressPoints":2}`)
	if err := st.Set(ctx, "cst_data", second); err != nil {
		t.Fatalf("Set(second) error = %v", err)
	}

	got, err := st.Get(ctx, "cst_data")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(second) {
		t.Fatalf("Get() = %s, want %s", got, second)
	}

	if _, err := st.Get(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(other) error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestInMemoryStoreCopiesValues(t *testing.T) {
	st := NewInMemoryStore()
	buf := []byte(`{"a":1}`)
	if err := st.Set(context.Background(), "k", buf); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	buf[2] = 'b'
	got, _ := st.Get(context.Background(), "k")
	if string(got) != `{"a":1}` {
		t.Fatalf("stored value mutated through caller buffer: %s", got)
	}
}

func TestFileStore(t *testing.T) {
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	exerciseStore(t, st)
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if got := st.path("../escape"); got != filepath.Join(dir, ".._escape.json") {
		t.Fatalf("path() = %q, want it inside %q", got, dir)
	}
}

func TestSQLiteStore(t *testing.T) {
	st, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("closing sqlite store: %v", err)
		}
	})
	if st.Mode() != ModeSQLite {
		t.Fatalf("Mode() = %q, want %q", st.Mode(), ModeSQLite)
	}
	exerciseStore(t, st)
}

func TestPostgresStore(t *testing.T) {
	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	st, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	t.Cleanup(func() {
		_, _ = st.pool.Exec(context.Background(), `DELETE FROM kv_store WHERE store_key IN ('cst_data', 'other')`)
		_ = st.Close()
	})
	if _, err := st.pool.Exec(ctx, `DELETE FROM kv_store WHERE store_key IN ('cst_data', 'other')`); err != nil {
		t.Fatalf("clearing kv_store: %v", err)
	}
	exerciseStore(t, st)
}

func TestResolveMode(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"empty", Config{}, ModeMemory},
		{"auto postgres", Config{Backend: "auto", DatabaseURL: "postgres://x"}, ModePostgres},
		{"auto sqlite", Config{SQLitePath: "/tmp/x.db"}, ModeSQLite},
		{"auto mysql", Config{MySQLDSN: "u:p@tcp(h)/db"}, ModeMySQL},
		{"auto file", Config{DataDir: "/tmp/data"}, ModeFile},
		{"explicit wins", Config{Backend: "Memory", DatabaseURL: "postgres://x"}, ModeMemory},
	}
	for _, tc := range cases {
		if got := ResolveMode(tc.cfg); got != tc.want {
			t.Fatalf("%s: ResolveMode() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	if _, _, err := NewStore(context.Background(), Config{Backend: "redis"}); err == nil {
		t.Fatalf("NewStore(redis) error = nil, want error")
	}
}
