// Package prometheus implements metrics.SessionMetrics on top of
// client_golang, registered onto the process-wide registry from
// github.com/drawfs/drawfs/pkg/metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/drawfs/drawfs/pkg/metrics"
)

type sessionMetrics struct {
	sessionsOpened prometheus.Counter
	sessionsClosed prometheus.Counter

	framesTotal   *prometheus.CounterVec
	messagesTotal *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec

	bytesTotal *prometheus.CounterVec

	outqDepth *prometheus.GaugeVec
}

// NewSessionMetrics creates a Prometheus-backed metrics.SessionMetrics.
// Returns metrics.Noop() if InitRegistry has not been called.
func NewSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return metrics.Noop()
	}

	reg := metrics.GetRegistry()
	return &sessionMetrics{
		sessionsOpened: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "drawfs_sessions_opened_total",
			Help: "Total number of device sessions opened.",
		}),
		sessionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "drawfs_sessions_closed_total",
			Help: "Total number of device sessions closed.",
		}),
		framesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "drawfs_frames_total",
			Help: "Total number of inbound frames decoded, by validity.",
		}, []string{"validity"}), // "valid" | "invalid"
		messagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "drawfs_messages_total",
			Help: "Total number of dispatched messages, by support.",
		}, []string{"support"}), // "supported" | "unsupported"
		eventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "drawfs_events_total",
			Help: "Total number of SURFACE_PRESENTED events, by outcome.",
		}, []string{"outcome"}), // "enqueued" | "dropped"
		bytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "drawfs_bytes_total",
			Help: "Total bytes moved across the device facade, by direction.",
		}, []string{"direction"}), // "in" | "out"
		outqDepth: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "drawfs_session_outq_depth",
			Help: "Current OutQueue depth for a session.",
		}, []string{"session_id"}),
	}
}

func (m *sessionMetrics) RecordSessionOpened() { m.sessionsOpened.Inc() }
func (m *sessionMetrics) RecordSessionClosed() { m.sessionsClosed.Inc() }

func (m *sessionMetrics) RecordFrames(valid, invalid uint64) {
	m.framesTotal.WithLabelValues("valid").Add(float64(valid))
	m.framesTotal.WithLabelValues("invalid").Add(float64(invalid))
}

func (m *sessionMetrics) RecordMessages(supported, unsupported uint64) {
	m.messagesTotal.WithLabelValues("supported").Add(float64(supported))
	m.messagesTotal.WithLabelValues("unsupported").Add(float64(unsupported))
}

func (m *sessionMetrics) RecordEvents(enqueued, dropped uint64) {
	m.eventsTotal.WithLabelValues("enqueued").Add(float64(enqueued))
	m.eventsTotal.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *sessionMetrics) RecordBytes(in, out uint64) {
	m.bytesTotal.WithLabelValues("in").Add(float64(in))
	m.bytesTotal.WithLabelValues("out").Add(float64(out))
}

func (m *sessionMetrics) SetOutqDepth(sessionID uint64, depth int) {
	m.outqDepth.WithLabelValues(formatSessionID(sessionID)).Set(float64(depth))
}
