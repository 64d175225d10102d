package fields

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZero(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f != (FieldData{}) {
		t.Fatalf("Load() = %+v, want zero value", f)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	body := []byte(`sessionSummary: Sunday grind
tier1Threshold: 2
tier2Threshold: "5"
tier3Threshold: 9
viewerTaskLimit: 4
theme: light
streamerTask1: Finish the boss
streamerTask3: "  "
streamerTask4: Answer mail
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write fields: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.SessionSummary != "Sunday grind" {
		t.Fatalf("SessionSummary = %q, want %q", f.SessionSummary, "Sunday grind")
	}
	if f.Tier1Threshold != 2 || f.Tier2Threshold != 5 || f.Tier3Threshold != 9 {
		t.Fatalf("tiers = %d/%d/%d, want 2/5/9", f.Tier1Threshold, f.Tier2Threshold, f.Tier3Threshold)
	}
	if f.ViewerTaskLimit != 4 {
		t.Fatalf("ViewerTaskLimit = %d, want 4", f.ViewerTaskLimit)
	}
	tasks := f.StreamerTasks()
	if len(tasks) != 2 || tasks[0] != "Finish the boss" || tasks[1] != "Answer mail" {
		t.Fatalf("StreamerTasks() = %v, want [Finish the boss Answer mail]", tasks)
	}
}

func TestFromMapAcceptsNumericStrings(t *testing.T) {
	f, err := FromMap(map[string]any{
		"viewerTaskLimit":  "6",
		"tier3Threshold":   20.0,
		"progressBarColor": "purple",
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if f.ViewerTaskLimit != 6 {
		t.Fatalf("ViewerTaskLimit = %d, want 6", f.ViewerTaskLimit)
	}
	if f.Tier3Threshold != 20 {
		t.Fatalf("Tier3Threshold = %d, want 20", f.Tier3Threshold)
	}
	if f.ProgressBarColor != "purple" {
		t.Fatalf("ProgressBarColor = %q, want %q", f.ProgressBarColor, "purple")
	}
}
