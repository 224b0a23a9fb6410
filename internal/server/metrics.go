package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/observability"
)

// Refresh reasons recorded in metrics and logs.
const (
	reasonJoin    = "join"
	reasonRequest = "request"
	reasonStale   = "stale"
	reasonMissing = "missing_patch"
)

// metrics tracks hub activity.
type metrics struct {
	connections    *prometheus.GaugeVec
	publishes      prometheus.Counter
	prepareErrors  prometheus.Counter
	refreshes      *prometheus.CounterVec
	patches        *prometheus.CounterVec
	patchBytes     *prometheus.HistogramVec
	diffDuration   *prometheus.HistogramVec
	staleTotal     prometheus.Counter
	clientMessages *prometheus.CounterVec
}

// newMetrics creates the hub metrics and registers them with reg if it is
// not nil.
func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "connections",
			Help:      "Open sync connections by state.",
		}, []string{"state"}),
		publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "publishes_total",
			Help:      "Revisions committed while the hub was attached.",
		}),
		prepareErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "prepare_errors_total",
			Help:      "Publishes aborted because the patch could not be computed.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "refreshes_total",
			Help:      "Refresh messages enqueued by reason.",
		}, []string{"reason"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "patches_total",
			Help:      "Patch messages enqueued by granularity.",
		}, []string{"granularity"}),
		patchBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "patch_bytes",
			Help:      "Encoded patch size.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}, []string{"granularity"}),
		diffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "diff_duration_seconds",
			Help:      "Time spent computing a publish's patch.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"granularity"}),
		staleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "stale_total",
			Help:      "Connections marked stale after their queue overflowed.",
		}),
		clientMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: observability.Namespace,
			Subsystem: "server",
			Name:      "client_messages_total",
			Help:      "Messages received from clients by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.connections,
			m.publishes,
			m.prepareErrors,
			m.refreshes,
			m.patches,
			m.patchBytes,
			m.diffDuration,
			m.staleTotal,
			m.clientMessages,
		)
	}
	return m
}

// RecordDiff records one patch computation.
func (m *metrics) RecordDiff(g diff.Granularity, d time.Duration, size int) {
	m.diffDuration.WithLabelValues(g.String()).Observe(d.Seconds())
	m.patchBytes.WithLabelValues(g.String()).Observe(float64(size))
}

// RecordConnect counts a new connection in the Connecting state.
func (m *metrics) RecordConnect() {
	m.connections.WithLabelValues(StateConnecting.String()).Inc()
}

// RecordTransition moves one connection between state gauges.
func (m *metrics) RecordTransition(from, to State) {
	m.connections.WithLabelValues(from.String()).Dec()
	if to != StateDisconnected {
		m.connections.WithLabelValues(to.String()).Inc()
	}
}
