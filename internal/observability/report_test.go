package observability

import (
	"fmt"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(fmt.Sprintf("test_report_%d", time.Now().UnixNano()))
}

func TestReportGroupsOutcomesByCommand(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveCommand("task", "ok", 2*time.Millisecond)
	m.ObserveCommand("task", "ok", 3*time.Millisecond)
	m.ObserveCommand("task", "existing", time.Millisecond)
	m.ObserveCommand("approve", "denied", 100*time.Microsecond)

	rep := m.Report()
	if len(rep.Commands) != 2 {
		t.Fatalf("len(Commands) = %d, want 2", len(rep.Commands))
	}
	if rep.Commands[0].Command != "approve" || rep.Commands[1].Command != "task" {
		t.Fatalf("Commands order = %s,%s, want approve,task", rep.Commands[0].Command, rep.Commands[1].Command)
	}
	task := rep.Commands[1]
	if task.Count != 3 {
		t.Fatalf("task Count = %d, want 3", task.Count)
	}
	if task.Outcomes["ok"] != 2 || task.Outcomes["existing"] != 1 {
		t.Fatalf("task Outcomes = %v, want ok:2 existing:1", task.Outcomes)
	}
	if task.AvgMS != 2 {
		t.Fatalf("task AvgMS = %.2f, want 2", task.AvgMS)
	}
	if task.P95MS <= 2.5 || task.P95MS > 5 {
		t.Fatalf("task P95MS = %.2f, want within the (2.5,5] bucket", task.P95MS)
	}
	if task.OverTarget {
		t.Fatalf("task OverTarget = true with p95 %.2f", task.P95MS)
	}
}

func TestReportStoreWritesByResult(t *testing.T) {
	m := newTestMetrics(t)
	m.ObserveStoreWrite("ok", 4*time.Millisecond)
	m.ObserveStoreWrite("error", 600*time.Millisecond)
	m.ObserveStoreWrite("encode_error", 0)
	m.ObserveSweep(2)
	m.ObserveBoard(3, 7)

	rep := m.Report()
	if len(rep.StoreWrites) != 3 {
		t.Fatalf("StoreWrites = %+v, want 3 result classes", rep.StoreWrites)
	}
	byResult := map[string]StoreWriteStats{}
	for _, w := range rep.StoreWrites {
		byResult[w.Result] = w
	}
	if w := byResult["encode_error"]; w.Count != 1 || w.Timed != 0 {
		t.Fatalf("encode_error = %+v, want counted but untimed", w)
	}
	if w := byResult["error"]; w.P95MS <= 500 || w.P95MS > 1000 {
		t.Fatalf("error P95MS = %.2f, want within (500,1000]", w.P95MS)
	}
	if w := byResult["ok"]; w.Count != 1 || w.AvgMS != 4 {
		t.Fatalf("ok = %+v, want one 4ms write", w)
	}
	if rep.OfflineTransitions != 2 || rep.PendingTasks != 3 || rep.ProgressPoints != 7 {
		t.Fatalf("board figures = %d/%d/%d, want 2/3/7", rep.OfflineTransitions, rep.PendingTasks, rep.ProgressPoints)
	}
}

func TestBucketQuantile(t *testing.T) {
	u := func(v uint64) *uint64 { return &v }
	f := func(v float64) *float64 { return &v }
	h := &dto.Histogram{
		SampleCount: u(10),
		Bucket: []*dto.Bucket{
			{UpperBound: f(1), CumulativeCount: u(5)},
			{UpperBound: f(2), CumulativeCount: u(10)},
		},
	}
	cases := []struct {
		q    float64
		want float64
	}{
		{0.5, 1},
		{0.25, 0.5},
		{0.75, 1.5},
		{1, 2},
	}
	for _, tc := range cases {
		if got := bucketQuantile(h, tc.q); got != tc.want {
			t.Fatalf("bucketQuantile(%.2f) = %.2f, want %.2f", tc.q, got, tc.want)
		}
	}
	if got := bucketQuantile(&dto.Histogram{}, 0.5); got != 0 {
		t.Fatalf("bucketQuantile(empty) = %.2f, want 0", got)
	}
}
