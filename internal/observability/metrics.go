package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the streaming core. Registered on the default
// registry; the HTTP server exposes them at /metrics.
var (
	// EncoderStartTotal counts encoder spawn attempts by result (ok/error).
	EncoderStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castarr_encoder_start_total",
		Help: "Encoder process spawn attempts by result.",
	}, []string{"result"})

	// EncoderExitTotal counts encoder terminations by reason (end/error/killed).
	EncoderExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castarr_encoder_exit_total",
		Help: "Encoder process exits by reason.",
	}, []string{"reason"})

	// StreamBytesTotal counts bytes delivered to streaming clients.
	StreamBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castarr_stream_bytes_total",
		Help: "Total bytes written to streaming clients.",
	})

	// ActiveSessions tracks currently open concat sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "castarr_active_sessions",
		Help: "Concat sessions currently open.",
	})

	// SessionAttemptsTotal counts per-session stream attempts by outcome
	// (ok/failed/throttled).
	SessionAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castarr_session_attempts_total",
		Help: "Stream attempts within concat sessions by outcome.",
	}, []string{"outcome"})

	// ResolveDuration observes lineup resolution latency including redirect
	// hops and filler selection.
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "castarr_resolve_duration_seconds",
		Help:    "Time to resolve a lineup item for a stream request.",
		Buckets: prometheus.DefBuckets,
	})
)
