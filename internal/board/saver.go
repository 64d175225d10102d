package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ent0n29/streamtasks/internal/observability"
	"github.com/ent0n29/streamtasks/internal/store"
)

const DefaultStoreKey = "cst_data"

type SaverConfig struct {
	Key          string
	Debounce     time.Duration
	WriteTimeout time.Duration
}

// Saver is a coalescing write queue in front of a store. Schedule only
// remembers the newest snapshot and (re)arms a trailing timer; the write
// itself happens off the caller's goroutine. A failed write keeps the
// snapshot dirty so the next Schedule or Flush retries it.
type Saver struct {
	store   store.Store
	cfg     SaverConfig
	metrics *observability.Metrics

	mu      sync.Mutex
	pending *Snapshot
	timer   *time.Timer
	closed  bool

	writeMu sync.Mutex
}

func NewSaver(st store.Store, cfg SaverConfig, metrics *observability.Metrics) *Saver {
	if cfg.Key == "" {
		cfg.Key = DefaultStoreKey
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	return &Saver{
		store:   st,
		cfg:     cfg,
		metrics: metrics,
	}
}

// Schedule queues snap for writing. The caller must not mutate snap after
// handing it over.
func (s *Saver) Schedule(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &snap
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Debounce, s.fire)
}

// Dirty reports whether a snapshot is waiting to be written.
func (s *Saver) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Flush writes the pending snapshot, if any, before returning.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.write(ctx)
}

// Close stops the timer and flushes. Later Schedule calls are kept in memory
// but only written by an explicit Flush.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

// Load reads the stored snapshot. ok is false when the store holds nothing
// or a snapshot without lists.
func (s *Saver) Load(ctx context.Context) (Snapshot, bool, error) {
	raw, err := s.store.Get(ctx, s.cfg.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("load %s: %w", s.cfg.Key, err)
	}
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load %s: %w", s.cfg.Key, err)
	}
	if len(snap.Lists) == 0 {
		return snap, false, nil
	}
	return snap, true, nil
}

func (s *Saver) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.write(ctx); err != nil {
		log.Printf("board save failed, retrying on next change: %v", err)
	}
}

func (s *Saver) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return nil
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		s.observe("encode_error", 0)
		return fmt.Errorf("encode snapshot: %w", err)
	}

	start := time.Now()
	err = s.store.Set(ctx, s.cfg.Key, payload)
	if err != nil {
		s.observe("error", time.Since(start))
		s.mu.Lock()
		if s.pending == nil {
			s.pending = snap
		}
		s.mu.Unlock()
		return fmt.Errorf("store set %s: %w", s.cfg.Key, err)
	}
	s.observe("ok", time.Since(start))
	return nil
}

func (s *Saver) observe(result string, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveStoreWrite(result, d)
}

// DecodeSnapshot parses a stored snapshot and fills in missing collections
// and task ids.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return normalizeSnapshot(snap), nil
}
