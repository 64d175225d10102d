package board

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/streamtasks/internal/fields"
	"github.com/ent0n29/streamtasks/internal/store"
)

type fakeStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	failOn int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn > 0 {
		s.failOn--
		return errors.New("store unavailable")
	}
	s.sets++
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func TestSaverCoalescesBurst(t *testing.T) {
	st := newFakeStore()
	saver := NewSaver(st, SaverConfig{Debounce: time.Hour}, nil)

	for i := 0; i < 10; i++ {
		saver.Schedule(Snapshot{ProgressPoints: i})
	}
	if got := st.setCount(); got != 0 {
		t.Fatalf("sets before flush = %d, want 0", got)
	}
	if err := saver.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := st.setCount(); got != 1 {
		t.Fatalf("sets after flush = %d, want 1", got)
	}

	snap, _, err := saver.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.ProgressPoints != 9 {
		t.Fatalf("ProgressPoints = %d, want 9", snap.ProgressPoints)
	}
}

func TestSaverWritesAfterDebounce(t *testing.T) {
	st := newFakeStore()
	saver := NewSaver(st, SaverConfig{Debounce: 10 * time.Millisecond}, nil)
	saver.Schedule(Snapshot{ProgressPoints: 1})

	deadline := time.Now().Add(2 * time.Second)
	for st.setCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("debounced write never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if saver.Dirty() {
		t.Fatalf("Dirty() = true after write")
	}
}

func TestSaverRetriesAfterFailure(t *testing.T) {
	st := newFakeStore()
	st.failOn = 1
	saver := NewSaver(st, SaverConfig{Debounce: time.Hour}, nil)

	saver.Schedule(Snapshot{ProgressPoints: 4})
	if err := saver.Flush(context.Background()); err == nil {
		t.Fatalf("Flush() error = nil, want store failure")
	}
	if !saver.Dirty() {
		t.Fatalf("Dirty() = false after failed write")
	}
	if err := saver.Flush(context.Background()); err != nil {
		t.Fatalf("retry Flush() error = %v", err)
	}
	if got := st.setCount(); got != 1 {
		t.Fatalf("sets = %d, want 1", got)
	}
}

func TestSaverLoadEmpty(t *testing.T) {
	saver := NewSaver(newFakeStore(), SaverConfig{}, nil)
	_, ok, err := saver.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("Load() = %v, %v; want false, nil", ok, err)
	}
}

func TestSaverLoadRejectsCorruptPayload(t *testing.T) {
	st := newFakeStore()
	st.data[DefaultStoreKey] = []byte("{not json")
	saver := NewSaver(st, SaverConfig{}, nil)
	if _, _, err := saver.Load(context.Background()); err == nil {
		t.Fatalf("Load() error = nil, want decode error")
	}
}

func TestManagerPersistsThroughSaver(t *testing.T) {
	st := newFakeStore()
	saver := NewSaver(st, SaverConfig{Debounce: time.Hour}, nil)

	m := NewManager()
	m.SetSaver(saver)
	m.InitializeDefault(fields.FieldData{})
	m.AddPendingTask("lee", "Practice")
	m.SetProgress(5)
	if err := m.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := st.setCount(); got != 1 {
		t.Fatalf("sets = %d, want 1", got)
	}

	restored := NewManager()
	restored.SetSaver(NewSaver(st, SaverConfig{Debounce: time.Hour}, nil))
	loaded, err := restored.LoadOrInitialize(context.Background(), fields.FieldData{})
	if err != nil || !loaded {
		t.Fatalf("LoadOrInitialize() = %v, %v; want true, nil", loaded, err)
	}

	if got, want := restored.Snapshot(), m.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("restored = %+v, want %+v", got, want)
	}
}

func TestLoadOrInitializeFallsBackToDefault(t *testing.T) {
	m := NewManager()
	m.SetSaver(NewSaver(newFakeStore(), SaverConfig{Debounce: time.Hour}, nil))
	loaded, err := m.LoadOrInitialize(context.Background(), fields.FieldData{ViewerTaskLimit: 5})
	if err != nil || loaded {
		t.Fatalf("LoadOrInitialize() = %v, %v; want false, nil", loaded, err)
	}
	lists := m.Lists()
	if len(lists) != 2 || lists[1].Limit != 5 {
		t.Fatalf("lists = %+v, want default board with limit 5", lists)
	}
}
