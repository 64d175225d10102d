package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ent0n29/streamtasks/internal/board"
	"github.com/ent0n29/streamtasks/internal/commands"
	"github.com/ent0n29/streamtasks/internal/config"
	"github.com/ent0n29/streamtasks/internal/fields"
	"github.com/ent0n29/streamtasks/internal/httpapi"
	"github.com/ent0n29/streamtasks/internal/observability"
	"github.com/ent0n29/streamtasks/internal/overlay"
	"github.com/ent0n29/streamtasks/internal/policy"
	"github.com/ent0n29/streamtasks/internal/reliability"
	"github.com/ent0n29/streamtasks/internal/store"
)

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Board      *board.Manager
	Dispatcher *commands.Dispatcher
	Hub        *overlay.Hub
	Metrics    *observability.Metrics
	StoreMode  string
	Loaded     bool

	// Cleanup flushes the pending board write and closes the store. It should
	// run after the HTTP server and the sweep have stopped.
	Cleanup func(ctx context.Context) error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	st, mode, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}
	log.Printf("board store: %s", mode)

	fieldData, err := fields.Load(cfg.FieldsPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("field data: %w", err)
	}

	saver := board.NewSaver(st, board.SaverConfig{
		Key:          cfg.StoreKey,
		Debounce:     cfg.SaveDebounce,
		WriteTimeout: cfg.StoreWriteTimeout,
	}, metrics)

	hub := overlay.NewHub()
	b := board.NewManager()
	b.SetSaver(saver)
	b.SetChangeHook(func(v board.View) {
		hub.PublishView(v)
		metrics.ObserveBoard(len(v.PendingTasks), v.ProgressPoints)
	})
	b.SetSweepHook(metrics.ObserveSweep)

	loaded, err := b.LoadOrInitialize(ctx, fieldData)
	if err != nil {
		log.Printf("board load failed, starting from defaults: %v", err)
	}
	if loaded {
		log.Printf("board restored from %s key %q", mode, cfg.StoreKey)
	} else {
		log.Printf("board initialized with default lists")
	}

	dispatcher := commands.NewDispatcher(b, commands.MultiSink{commands.LogSink{}, hub}, metrics)
	api := httpapi.New(cfg, b, dispatcher, hub, metrics, mode)

	cleanup := func(ctx context.Context) error {
		var errs []error
		if err := saver.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush board: %w", err))
		}
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		return errors.Join(errs...)
	}

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Board:      b,
		Dispatcher: dispatcher,
		Hub:        hub,
		Metrics:    metrics,
		StoreMode:  mode,
		Loaded:     loaded,
		Cleanup:    cleanup,
	}, nil
}

// openStore retries transient connect failures so the service can start
// alongside its database.
func openStore(ctx context.Context, cfg config.Config) (store.Store, string, error) {
	storeCfg := store.Config{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		MySQLDSN:    cfg.MySQLDSN,
		DataDir:     cfg.DataDir,
	}
	var (
		st   store.Store
		mode string
	)
	attempt := 0
	err := reliability.Retry(ctx, cfg.StoreConnectAttempts, 250*time.Millisecond, 5*time.Second, func(ctx context.Context) error {
		attempt++
		var err error
		st, mode, err = store.NewStore(ctx, storeCfg)
		if err != nil {
			log.Printf("store connect attempt %d/%d (%s) failed: %v", attempt, cfg.StoreConnectAttempts, describeTarget(storeCfg), err)
		}
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return st, mode, nil
}

func describeTarget(cfg store.Config) string {
	switch store.ResolveMode(cfg) {
	case store.ModePostgres:
		return policy.RedactDSN(cfg.DatabaseURL)
	case store.ModeMySQL:
		return policy.RedactDSN(cfg.MySQLDSN)
	case store.ModeSQLite:
		return cfg.SQLitePath
	case store.ModeFile:
		return cfg.DataDir
	default:
		return store.ResolveMode(cfg)
	}
}
