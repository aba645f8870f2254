package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/dittorpc/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// clientMetrics is the Prometheus implementation of metrics.ClientMetrics.
type clientMetrics struct {
	callsTotal        *prometheus.CounterVec
	callDuration      *prometheus.HistogramVec
	transmitsTotal    *prometheus.CounterVec
	bytesTransferred  *prometheus.CounterVec
	discardedTotal    *prometheus.CounterVec
	authRefreshTotal  prometheus.Counter
	socketErrorsTotal prometheus.Counter
	pendingCalls      prometheus.Gauge
}

var (
	globalOnce    sync.Once
	globalMetrics metrics.ClientMetrics
)

// NewClientMetrics returns the collector registered on the global registry.
//
// Collectors can only be registered once per registry, so every caller gets
// the same instance. Returns a no-op implementation if metrics are not
// enabled (InitRegistry not called).
func NewClientMetrics() metrics.ClientMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopClientMetrics()
	}

	globalOnce.Do(func() {
		globalMetrics = NewClientMetricsWith(metrics.GetRegistry())
	})
	return globalMetrics
}

// NewClientMetricsWith registers a new collector set on reg.
func NewClientMetricsWith(reg prometheus.Registerer) metrics.ClientMetrics {
	return &clientMetrics{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittorpc_calls_total",
				Help: "Total number of RPC calls by program, procedure and final status",
			},
			[]string{"program", "procedure", "status"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittorpc_call_duration_milliseconds",
				Help: "Duration of RPC calls in milliseconds, retransmissions included",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
					60000, // 1m
				},
			},
			[]string{"program", "procedure"},
		),
		transmitsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittorpc_transmits_total",
				Help: "Datagrams sent, split by first transmission and retransmission",
			},
			[]string{"kind"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittorpc_bytes_transferred_total",
				Help: "Total datagram bytes sent and received",
			},
			[]string{"direction"},
		),
		discardedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittorpc_replies_discarded_total",
				Help: "Received datagrams dropped by the demultiplexer",
			},
			[]string{"reason"},
		),
		authRefreshTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittorpc_auth_refreshes_total",
				Help: "Credential refreshes followed by a resend",
			},
		),
		socketErrorsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittorpc_socket_errors_total",
				Help: "Hard receive errors broadcast to every pending call on a socket",
			},
		),
		pendingCalls: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittorpc_pending_calls",
				Help: "Current number of calls awaiting a reply",
			},
		),
	}
}

func (m *clientMetrics) RecordCall(program, procedure uint32, status string, duration time.Duration) {
	prog := strconv.FormatUint(uint64(program), 10)
	proc := strconv.FormatUint(uint64(procedure), 10)

	m.callsTotal.WithLabelValues(prog, proc, status).Inc()
	m.callDuration.WithLabelValues(prog, proc).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *clientMetrics) RecordTransmit(bytes int, retransmit bool) {
	kind := "first"
	if retransmit {
		kind = "retransmit"
	}
	m.transmitsTotal.WithLabelValues(kind).Inc()
	m.bytesTransferred.WithLabelValues("sent").Add(float64(bytes))
}

func (m *clientMetrics) RecordReply(bytes int) {
	m.bytesTransferred.WithLabelValues("received").Add(float64(bytes))
}

func (m *clientMetrics) RecordDiscarded(reason string) {
	m.discardedTotal.WithLabelValues(reason).Inc()
}

func (m *clientMetrics) RecordAuthRefresh() {
	m.authRefreshTotal.Inc()
}

func (m *clientMetrics) RecordSocketError() {
	m.socketErrorsTotal.Inc()
}

func (m *clientMetrics) AddPendingCalls(delta int) {
	m.pendingCalls.Add(float64(delta))
}
