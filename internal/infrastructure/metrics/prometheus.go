package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
)

// Metrics contains all Prometheus metrics for live meeting sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Session metrics
	SessionStatus   *prometheus.GaugeVec
	SessionsStarted prometheus.Counter
	SessionErrors   *prometheus.CounterVec

	// Audio metrics
	FramesCaptured prometheus.Counter
	ChunksSent     prometheus.Counter
	ChunksDropped  *prometheus.CounterVec

	// Transcript metrics
	FragmentsApplied prometheus.Counter
	FragmentsIgnored prometheus.Counter

	// Streaming metrics
	HandshakeAttempts prometheus.Counter
	HandshakeDuration prometheus.Histogram

	// Minutes metrics
	MinutesRequests  prometheus.Counter
	MinutesFailures  prometheus.Counter
	MinutesRetries   prometheus.Counter
	MinutesDuration  prometheus.Histogram
	MinutesDiscarded prometheus.Counter
}

var allStatuses = []entities.SessionStatus{
	entities.SessionStatusIdle,
	entities.SessionStatusConnecting,
	entities.SessionStatusRecording,
	entities.SessionStatusPaused,
	entities.SessionStatusCompleted,
	entities.SessionStatusError,
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "minutes_session_status",
			Help: "1 for the current session status, 0 otherwise",
		}, []string{"status"}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_sessions_started_total",
			Help: "Total number of sessions started from IDLE",
		}),
		SessionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "minutes_session_errors_total",
			Help: "Total number of session failures by kind",
		}, []string{"kind"}),

		FramesCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_audio_frames_captured_total",
			Help: "Total number of PCM frames read from the microphone",
		}),
		ChunksSent: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_audio_chunks_sent_total",
			Help: "Total number of audio chunks written to the streaming backend",
		}),
		ChunksDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "minutes_audio_chunks_dropped_total",
			Help: "Total number of audio chunks dropped by reason",
		}, []string{"reason"}),

		FragmentsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_transcript_fragments_applied_total",
			Help: "Total number of fragments that changed the transcript",
		}),
		FragmentsIgnored: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_transcript_fragments_ignored_total",
			Help: "Total number of fragments ignored (finalized index, blank, stale session)",
		}),

		HandshakeAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_streaming_handshake_attempts_total",
			Help: "Total number of websocket handshake attempts",
		}),
		HandshakeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "minutes_streaming_handshake_duration_seconds",
			Help:    "Duration of successful streaming handshakes",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),

		MinutesRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_generate_requests_total",
			Help: "Total number of minutes generation requests",
		}),
		MinutesFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_generate_failures_total",
			Help: "Total number of failed minutes generation requests",
		}),
		MinutesRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_generate_retries_total",
			Help: "Total number of summarizer retries",
		}),
		MinutesDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "minutes_generate_duration_seconds",
			Help:    "Duration of minutes generation",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),
		MinutesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "minutes_generate_discarded_total",
			Help: "Total number of minutes results discarded after a reset",
		}),
	}
}

// SetStatus marks status as the current session status
func (m *Metrics) SetStatus(status entities.SessionStatus) {
	if m == nil {
		return
	}
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.SessionStatus.WithLabelValues(string(s)).Set(v)
	}
}

// RecordSessionStarted increments the sessions started counter
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

// RecordSessionError records a session failure of the given kind
func (m *Metrics) RecordSessionError(kind string) {
	if m == nil {
		return
	}
	m.SessionErrors.WithLabelValues(kind).Inc()
}

// RecordFrameCaptured increments the captured frames counter
func (m *Metrics) RecordFrameCaptured() {
	if m == nil {
		return
	}
	m.FramesCaptured.Inc()
}

// RecordChunkSent increments the sent chunks counter
func (m *Metrics) RecordChunkSent() {
	if m == nil {
		return
	}
	m.ChunksSent.Inc()
}

// RecordChunkDropped records a dropped chunk with its reason
func (m *Metrics) RecordChunkDropped(reason string) {
	if m == nil {
		return
	}
	m.ChunksDropped.WithLabelValues(reason).Inc()
}

// RecordFragment records whether a fragment changed the transcript
func (m *Metrics) RecordFragment(applied bool) {
	if m == nil {
		return
	}
	if applied {
		m.FragmentsApplied.Inc()
		return
	}
	m.FragmentsIgnored.Inc()
}

// RecordHandshakeAttempt increments the handshake attempts counter
func (m *Metrics) RecordHandshakeAttempt() {
	if m == nil {
		return
	}
	m.HandshakeAttempts.Inc()
}

// RecordHandshake observes a successful handshake duration
func (m *Metrics) RecordHandshake(durationSeconds float64) {
	if m == nil {
		return
	}
	m.HandshakeDuration.Observe(durationSeconds)
}

// RecordMinutesRequest increments the minutes requests counter
func (m *Metrics) RecordMinutesRequest() {
	if m == nil {
		return
	}
	m.MinutesRequests.Inc()
}

// RecordMinutesResult records the outcome and duration of a minutes request
func (m *Metrics) RecordMinutesResult(ok bool, durationSeconds float64) {
	if m == nil {
		return
	}
	if !ok {
		m.MinutesFailures.Inc()
	}
	m.MinutesDuration.Observe(durationSeconds)
}

// RecordMinutesRetry increments the summarizer retry counter
func (m *Metrics) RecordMinutesRetry() {
	if m == nil {
		return
	}
	m.MinutesRetries.Inc()
}

// RecordMinutesDiscarded increments the discarded results counter
func (m *Metrics) RecordMinutesDiscarded() {
	if m == nil {
		return
	}
	m.MinutesDiscarded.Inc()
}
