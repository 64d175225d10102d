package observability

import (
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	commandTargetP95MS    = 20
	storeWriteTargetP95MS = 250
)

// CommandStats summarises one chat verb since process start.
type CommandStats struct {
	Command     string         `json:"command"`
	Count       uint64         `json:"count"`
	AvgMS       float64        `json:"avg_ms"`
	P50MS       float64        `json:"p50_ms"`
	P95MS       float64        `json:"p95_ms"`
	TargetP95MS float64        `json:"target_p95_ms"`
	OverTarget  bool           `json:"over_target"`
	Outcomes    map[string]int `json:"outcomes"`
}

// StoreWriteStats summarises board writes for one result class.
type StoreWriteStats struct {
	Result      string  `json:"result"`
	Count       int     `json:"count"`
	Timed       uint64  `json:"timed"`
	AvgMS       float64 `json:"avg_ms"`
	P95MS       float64 `json:"p95_ms"`
	TargetP95MS float64 `json:"target_p95_ms"`
}

// Report is the JSON body of the perf endpoint. Quantiles are estimated
// from histogram buckets the way histogram_quantile does.
type Report struct {
	GeneratedAt        time.Time         `json:"generated_at"`
	Commands           []CommandStats    `json:"commands"`
	StoreWrites        []StoreWriteStats `json:"store_writes"`
	OfflineTransitions int               `json:"offline_transitions"`
	PendingTasks       int               `json:"pending_tasks"`
	ProgressPoints     int               `json:"progress_points"`
	ConnectedOverlays  int               `json:"connected_overlays"`
}

func (m *Metrics) Report() Report {
	rep := Report{
		GeneratedAt: time.Now().UTC(),
		Commands:    []CommandStats{},
		StoreWrites: []StoreWriteStats{},
	}

	commands := map[string]*CommandStats{}
	command := func(name string) *CommandStats {
		c, ok := commands[name]
		if !ok {
			c = &CommandStats{Command: name, TargetP95MS: commandTargetP95MS, Outcomes: map[string]int{}}
			commands[name] = c
		}
		return c
	}
	for _, mt := range collect(m.CommandLatency) {
		h := mt.GetHistogram()
		c := command(label(mt, "command"))
		c.Count = h.GetSampleCount()
		c.AvgMS = avg(h)
		c.P50MS = bucketQuantile(h, 0.50)
		c.P95MS = bucketQuantile(h, 0.95)
		c.OverTarget = c.P95MS > c.TargetP95MS
	}
	for _, mt := range collect(m.CommandOutcomes) {
		c := command(label(mt, "command"))
		c.Outcomes[label(mt, "outcome")] = int(mt.GetCounter().GetValue())
	}
	for _, c := range commands {
		rep.Commands = append(rep.Commands, *c)
	}
	sort.Slice(rep.Commands, func(i, j int) bool { return rep.Commands[i].Command < rep.Commands[j].Command })

	writes := map[string]*StoreWriteStats{}
	for _, mt := range collect(m.StoreWrites) {
		result := label(mt, "result")
		writes[result] = &StoreWriteStats{
			Result:      result,
			Count:       int(mt.GetCounter().GetValue()),
			TargetP95MS: storeWriteTargetP95MS,
		}
	}
	for _, mt := range collect(m.StoreWriteLatency) {
		w, ok := writes[label(mt, "result")]
		if !ok {
			continue
		}
		h := mt.GetHistogram()
		w.Timed = h.GetSampleCount()
		w.AvgMS = avg(h)
		w.P95MS = bucketQuantile(h, 0.95)
	}
	for _, w := range writes {
		rep.StoreWrites = append(rep.StoreWrites, *w)
	}
	sort.Slice(rep.StoreWrites, func(i, j int) bool { return rep.StoreWrites[i].Result < rep.StoreWrites[j].Result })

	rep.OfflineTransitions = int(single(m.SweepTransitions).GetCounter().GetValue())
	rep.PendingTasks = int(single(m.PendingTasks).GetGauge().GetValue())
	rep.ProgressPoints = int(single(m.ProgressPoints).GetGauge().GetValue())
	rep.ConnectedOverlays = int(single(m.OverlayClients).GetGauge().GetValue())
	return rep
}

func collect(c prometheus.Collector) []*dto.Metric {
	ch := make(chan prometheus.Metric, 32)
	go func() {
		c.Collect(ch)
		close(ch)
	}()
	var out []*dto.Metric
	for pm := range ch {
		var mt dto.Metric
		if err := pm.Write(&mt); err != nil {
			continue
		}
		out = append(out, &mt)
	}
	return out
}

func single(c prometheus.Collector) *dto.Metric {
	if ms := collect(c); len(ms) > 0 {
		return ms[0]
	}
	return &dto.Metric{}
}

func label(mt *dto.Metric, name string) string {
	for _, lp := range mt.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func avg(h *dto.Histogram) float64 {
	if h.GetSampleCount() == 0 {
		return 0
	}
	return round2(h.GetSampleSum() / float64(h.GetSampleCount()))
}

// bucketQuantile interpolates linearly inside the bucket holding rank q.
// Ranks past the last finite bucket report that bucket's upper bound.
func bucketQuantile(h *dto.Histogram, q float64) float64 {
	total := h.GetSampleCount()
	if total == 0 {
		return 0
	}
	rank := q * float64(total)
	lower, below := 0.0, 0.0
	for _, b := range h.GetBucket() {
		upper := b.GetUpperBound()
		cum := float64(b.GetCumulativeCount())
		if cum >= rank {
			inBucket := cum - below
			if inBucket <= 0 {
				return round2(upper)
			}
			return round2(lower + (upper-lower)*(rank-below)/inBucket)
		}
		lower, below = upper, cum
	}
	return round2(lower)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
