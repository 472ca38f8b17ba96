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
	ActiveConnections    prometheus.Gauge
	ActiveSessionWorkers prometheus.Gauge
	SessionEvents        *prometheus.CounterVec
	WSMessages           *prometheus.CounterVec
	OutboundMessages     *prometheus.CounterVec
	LogAppends           *prometheus.CounterVec
	ChecksResolved       *prometheus.CounterVec
	ProviderErrors       *prometheus.CounterVec
	GeneratorLatency     *prometheus.HistogramVec
	OrchestrationLatency *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of registered session channel connections.",
		}),
		ActiveSessionWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_session_workers",
			Help:      "Number of sessions with an orchestration worker running.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		OutboundMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Outbound message delivery results by type.",
		}, []string{"type", "result"}),
		LogAppends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_appends_total",
			Help:      "Session log appends by entry kind and result.",
		}, []string{"kind", "result"}),
		ChecksResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_resolved_total",
			Help:      "Resolved checks by source and outcome.",
		}, []string{"source", "outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		GeneratorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_latency_ms",
			Help:      "Narrative generator call latency in milliseconds, including retries.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		}, []string{"provider", "result"}),
		OrchestrationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "orchestration_latency_ms",
			Help:      "Time to fully process one inbound session message in milliseconds.",
			Buckets:   []float64{5, 25, 100, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"message"}),
	}
}

// ObserveGenerator records one gateway call.
func (m *Metrics) ObserveGenerator(provider, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.GeneratorLatency.WithLabelValues(provider, result).Observe(float64(d.Milliseconds()))
}

// ObserveOrchestration records one processed inbound message.
func (m *Metrics) ObserveOrchestration(message string, d time.Duration) {
	if m == nil {
		return
	}
	m.OrchestrationLatency.WithLabelValues(message).Observe(float64(d.Milliseconds()))
}

// ObserveOutboundMessage records a delivery attempt to one connection.
func (m *Metrics) ObserveOutboundMessage(msgType, result string) {
	if m == nil {
		return
	}
	m.OutboundMessages.WithLabelValues(msgType, result).Inc()
}

// ObserveWSMessage counts one websocket frame by direction and type.
func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SessionEvent increments the named session event.
func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
