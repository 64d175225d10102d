package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatMessages      *prometheus.CounterVec
	CommandOutcomes   *prometheus.CounterVec
	StoreWrites       *prometheus.CounterVec
	CommandLatency    *prometheus.HistogramVec
	StoreWriteLatency *prometheus.HistogramVec
	PendingTasks      prometheus.Gauge
	ProgressPoints    prometheus.Gauge
	OverlayClients    prometheus.Gauge
	WSMessages        *prometheus.CounterVec
	SweepTransitions  prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ChatMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages received by command verb.",
		}, []string{"command"}),
		CommandOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_outcomes_total",
			Help:      "Dispatched commands by verb and outcome.",
		}, []string{"command", "outcome"}),
		StoreWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Board snapshot writes by result.",
		}, []string{"result"}),
		CommandLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_ms",
			Help:      "Time spent applying a chat command to the board, in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 50},
		}, []string{"command"}),
		StoreWriteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_latency_ms",
			Help:      "Latency of board snapshot writes in milliseconds, by result.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000},
		}, []string{"result"}),
		PendingTasks: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_tasks",
			Help:      "Viewer submissions waiting for approval.",
		}),
		ProgressPoints: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_points",
			Help:      "Current session progress points.",
		}),
		OverlayClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overlay_clients",
			Help:      "Connected overlay websocket clients.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		SweepTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offline_transitions_total",
			Help:      "Tasks marked offline by the presence sweep.",
		}),
	}
}

func (m *Metrics) ObserveCommand(command, outcome string, d time.Duration) {
	m.CommandOutcomes.WithLabelValues(command, outcome).Inc()
	m.CommandLatency.WithLabelValues(command).Observe(millis(d))
}

func (m *Metrics) ObserveStoreWrite(result string, d time.Duration) {
	m.StoreWrites.WithLabelValues(result).Inc()
	// Encode failures never reach the store.
	if d > 0 {
		m.StoreWriteLatency.WithLabelValues(result).Observe(millis(d))
	}
}

func (m *Metrics) ObserveSweep(transitions int) {
	if transitions > 0 {
		m.SweepTransitions.Add(float64(transitions))
	}
}

// ObserveBoard refreshes the board gauges.
func (m *Metrics) ObserveBoard(pending, progress int) {
	m.PendingTasks.Set(float64(pending))
	m.ProgressPoints.Set(float64(progress))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
