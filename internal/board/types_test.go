package board

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestListsJSONKeepsOrder(t *testing.T) {
	in := Snapshot{
		Lists: Lists{
			{Name: "Zeta", Tasks: []Task{{ID: "1", Kind: KindGoal, Text: "z", Status: StatusActive}}},
			{Name: "Alpha", Summary: "First", Limit: 2},
		},
		PendingTasks:   []PendingTask{{Username: "u", Task: "t", Status: StatusPending}},
		ProgressPoints: 4,
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Index(string(raw), `"Zeta"`) > strings.Index(string(raw), `"Alpha"`) {
		t.Fatalf("marshal reordered lists: %s", raw)
	}

	out, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if len(out.Lists) != 2 || out.Lists[0].Name != "Zeta" || out.Lists[1].Name != "Alpha" {
		t.Fatalf("lists = %+v, want Zeta then Alpha", out.Lists)
	}
	if out.Lists[1].Tasks == nil {
		t.Fatalf("empty list decoded with nil tasks")
	}
	if out.Lists[0].Tasks[0] != in.Lists[0].Tasks[0] {
		t.Fatalf("task = %+v, want %+v", out.Lists[0].Tasks[0], in.Lists[0].Tasks[0])
	}
}

func TestDecodeSnapshotLegacyShape(t *testing.T) {
	raw := []byte(`{
		"lists": {
			"Viewers": {"tasks": [{"username": "rae", "task": "Knit", "status": "active", "lastSeen": 12}], "limit": 3},
			"Mods": {"tasks": [{"text": "Clip it", "addedBy": "mod1", "completed": true}]}
		},
		"progressPoints": 2
	}`)
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	viewer := snap.Lists[0].Tasks[0]
	if viewer.Kind != KindViewer || viewer.Text != "Knit" || viewer.ID == "" {
		t.Fatalf("viewer task = %+v", viewer)
	}
	mod := snap.Lists[1].Tasks[0]
	if mod.Kind != KindMod || mod.Status != StatusCompleted {
		t.Fatalf("mod task = %+v", mod)
	}
	if snap.PendingTasks == nil {
		t.Fatalf("PendingTasks = nil, want empty slice")
	}
}

func TestTaskLabel(t *testing.T) {
	cases := []struct {
		task Task
		want string
	}{
		{Task{Kind: KindViewer, Username: "sam", Text: "Sing"}, "sam: Sing"},
		{Task{Kind: KindMod, AddedBy: "mod", Text: "Raid"}, "Raid (by mod)"},
		{Task{Kind: KindGoal, Text: "Win"}, "Win"},
	}
	for _, tc := range cases {
		if got := tc.task.Label(); got != tc.want {
			t.Fatalf("Label() = %q, want %q", got, tc.want)
		}
	}
}
