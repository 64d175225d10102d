package board

import (
	"context"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/streamtasks/internal/store"
)

// fullSnapshot touches every persisted field. List names are neither sorted
// nor ordered by length so a backend that reorders object keys shows up.
func fullSnapshot() Snapshot {
	return Snapshot{
		Lists: Lists{
			{
				Name:        "Stream Goals",
				Summary:     "Sunday grind",
				LastChecked: 1700000000500,
				Tasks: []Task{
					{ID: "g1", Kind: KindGoal, Text: "Beat the boss", Status: StatusActive},
					{ID: "g2", Kind: KindGoal, Text: "Answer mail", Status: StatusCompleted, Completed: true},
				},
			},
			{
				Name:        "Viewers",
				Summary:     "Viewers",
				Limit:       4,
				LastChecked: 1700000000500,
				Tasks: []Task{
					{ID: "v1", Kind: KindViewer, Text: "Stretch", Username: "ana", Status: StatusOffline, LastSeen: 1700000000000},
					{ID: "v2", Kind: KindViewer, Text: "Read   two chapters", Username: "bo", Status: StatusPaused, LastSeen: 1700000000100},
				},
			},
			{Name: "B", Tasks: []Task{}},
			{
				Name: "Mod Picks",
				Tasks: []Task{
					{ID: "m1", Kind: KindMod, Text: "Hydrate", AddedBy: "modkat", Status: StatusActive},
				},
			},
		},
		PendingTasks: []PendingTask{
			{Username: "cy", Task: "Water plants", Status: StatusPending, SubmittedAt: 1700000000200},
			{Username: "di", Task: "Walk", Status: StatusPending},
		},
		ProgressPoints: 9,
	}
}

func TestSnapshotRoundTripThroughBackends(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T) store.Store
	}{
		{"memory", func(t *testing.T) store.Store { return store.NewInMemoryStore() }},
		{"file", func(t *testing.T) store.Store {
			st, err := store.NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore() error = %v", err)
			}
			return st
		}},
		{"sqlite", func(t *testing.T) store.Store {
			st, err := store.NewSQLiteStore(context.Background(), ":memory:")
			if err != nil {
				t.Fatalf("NewSQLiteStore() error = %v", err)
			}
			return st
		}},
		{"postgres", func(t *testing.T) store.Store {
			url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
			if url == "" {
				t.Skip("DATABASE_URL not set")
			}
			st, err := store.NewPostgresStore(context.Background(), url)
			if err != nil {
				t.Fatalf("NewPostgresStore() error = %v", err)
			}
			return st
		}},
	}

	for _, tc := range backends {
		t.Run(tc.name, func(t *testing.T) {
			st := tc.open(t)
			defer st.Close()
			cfg := SaverConfig{Key: "cst_roundtrip_test", Debounce: time.Hour}

			m := NewManager()
			m.SetSaver(NewSaver(st, cfg, nil))
			m.SetInitialState(fullSnapshot())
			m.Save()
			if err := m.Flush(context.Background()); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}

			restored := NewManager()
			restored.SetSaver(NewSaver(st, cfg, nil))
			loaded, err := restored.Load(context.Background())
			if err != nil || !loaded {
				t.Fatalf("Load() = %v, %v; want true, nil", loaded, err)
			}

			want := fullSnapshot()
			got := restored.Snapshot()
			names := func(ls Lists) []string {
				out := make([]string, len(ls))
				for i, l := range ls {
					out[i] = l.Name
				}
				return out
			}
			if !reflect.DeepEqual(names(got.Lists), names(want.Lists)) {
				t.Fatalf("list order = %v, want %v", names(got.Lists), names(want.Lists))
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("restored = %+v\nwant %+v", got, want)
			}
			if task, list, ok := restored.FindTaskByUsername("ana"); !ok || list != "Viewers" || task.ID != "v1" {
				t.Fatalf("FindTaskByUsername(ana) = %+v in %q, want v1 in Viewers", task, list)
			}
		})
	}
}

func TestSetInitialStateLeavesArgumentUntouched(t *testing.T) {
	snap := Snapshot{
		Lists: Lists{{Name: "Raw", Tasks: []Task{{Text: "no id yet"}}}},
	}
	m := NewManager()
	m.SetInitialState(snap)

	if got := snap.Lists[0].Tasks[0]; got.ID != "" || got.Status != "" || got.Kind != "" {
		t.Fatalf("argument mutated: %+v", got)
	}
	stored := m.Lists()[0].Tasks[0]
	if stored.ID == "" || stored.Status != StatusActive || stored.Kind != KindGoal {
		t.Fatalf("stored task = %+v, want normalized", stored)
	}
}
