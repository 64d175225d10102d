package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ent0n29/streamtasks/internal/config"
	"github.com/ent0n29/streamtasks/internal/protocol"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		MetricsNamespace:     fmt.Sprintf("test_app_%d", time.Now().UnixNano()),
		StoreBackend:         "file",
		StoreKey:             "cst_data",
		DataDir:              t.TempDir(),
		StoreConnectAttempts: 1,
		StoreWriteTimeout:    time.Second,
		SaveDebounce:         time.Hour,
		SweepInterval:        time.Minute,
		EnableTestAPI:        true,
	}
}

func TestBuildInitializesAndRestores(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := Build(ctx, cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if first.Loaded {
		t.Fatalf("Loaded = true on empty store")
	}
	if first.StoreMode != "file" {
		t.Fatalf("StoreMode = %q, want file", first.StoreMode)
	}
	reply, ok := first.Dispatcher.Handle(ctx, protocol.ChatMessage{Text: "!task build it", DisplayName: "ana"})
	if !ok || reply.IsError {
		t.Fatalf("Handle() = %+v, %v", reply, ok)
	}
	if err := first.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	cfg.MetricsNamespace += "_again"
	second, err := Build(ctx, cfg)
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	defer second.Cleanup(ctx)
	if !second.Loaded {
		t.Fatalf("Loaded = false, want restored board")
	}
	if _, ok := second.Board.FindPendingTask("ana"); !ok {
		t.Fatalf("pending task not restored")
	}
}

func TestBuildAppliesFieldsFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "fields.json")
	if err := os.WriteFile(path, []byte(`{"viewerTaskLimit": 6, "streamerTask1": "Finish map"}`), 0o644); err != nil {
		t.Fatalf("write fields: %v", err)
	}
	cfg.FieldsPath = path

	res, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup(context.Background())

	if got := res.Board.Config().ViewerTaskLimit; got != 6 {
		t.Fatalf("ViewerTaskLimit = %d, want 6", got)
	}
	lists := res.Board.Lists()
	if len(lists[0].Tasks) != 1 || lists[0].Tasks[0].Text != "Finish map" {
		t.Fatalf("goal list = %+v", lists[0])
	}
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "redis"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("Build() error = nil, want unknown backend")
	}
}
