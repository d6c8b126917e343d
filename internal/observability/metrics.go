package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RecordOps         *prometheus.CounterVec
	RecordOpLatency   *prometheus.HistogramVec
	ChatReplies       *prometheus.CounterVec
	CompletionLatency prometheus.Histogram
	RewardEvents      *prometheus.CounterVec
	ActiveChatSockets prometheus.Gauge
	WSMessages        *prometheus.CounterVec

	turnStages *chatTurnWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RecordOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_ops_total",
			Help:      "Record store operations by kind, operation and outcome.",
		}, []string{"kind", "op", "outcome"}),
		RecordOpLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_op_latency_ms",
			Help:      "Record store operation latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"kind", "op"}),
		ChatReplies: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Assistant replies by source (completion or fallback pool).",
		}, []string{"source"}),
		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Latency of completion endpoint calls in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000},
		}),
		RewardEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_events_total",
			Help:      "Memory reward bookkeeping by outcome.",
		}, []string{"outcome"}),
		ActiveChatSockets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_chat_sockets",
			Help:      "Number of connected chat websockets.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		turnStages: newChatTurnWindow(256),
	}
}

func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnStages.Observe(stage, float64(d.Microseconds())/1000)
}

func (m *Metrics) ObserveTurnIndicator(name string) {
	if m == nil {
		return
	}
	m.turnStages.ObserveIndicator(name)
}

// SnapshotTurnStages reports rolling chat turn phase latencies.
func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	if m == nil || m.turnStages == nil {
		return TurnStageSnapshot{GeneratedAt: time.Now().UTC(), Stages: []TurnStageStats{}}
	}
	return m.turnStages.Snapshot()
}

func (m *Metrics) ObserveRecordOp(kind, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordOps.WithLabelValues(kind, op, outcome).Inc()
	m.RecordOpLatency.WithLabelValues(kind, op).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveChatReply(source string, completionLatency time.Duration) {
	if m == nil {
		return
	}
	m.ChatReplies.WithLabelValues(source).Inc()
	if completionLatency > 0 {
		m.CompletionLatency.Observe(float64(completionLatency.Milliseconds()))
	}
}

func (m *Metrics) ObserveReward(outcome string) {
	if m == nil {
		return
	}
	m.RewardEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) SetActiveChatSockets(delta float64) {
	if m == nil {
		return
	}
	m.ActiveChatSockets.Add(delta)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
