// Package observability holds the Prometheus metrics and OpenTelemetry
// tracing for sessions and the post-processing pipeline. The monitor daemon
// serves the metrics on its /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionMetrics holds all Prometheus metrics for meeting sessions and
// pipeline runs.
type SessionMetrics struct {
	// Session metrics
	SessionsTotal        *prometheus.CounterVec
	SessionActive        prometheus.Gauge
	SessionSeconds       prometheus.Histogram
	AdmissionWaitSeconds prometheus.Histogram
	MeetingsDropped      prometheus.Counter

	// Recording metrics
	RecordedSeconds prometheus.Counter
	RecordingBytes  prometheus.Histogram

	// Pipeline metrics
	StagesTotal       *prometheus.CounterVec
	StageSeconds      *prometheus.HistogramVec
	StoreRetriesTotal prometheus.Counter

	// Calendar metrics
	PollsTotal *prometheus.CounterVec
}

// DefaultSessionMetrics creates metrics on the default registerer.
func DefaultSessionMetrics() *SessionMetrics {
	return NewSessionMetrics(prometheus.DefaultRegisterer)
}

// NewSessionMetrics creates a new set of session metrics.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	factory := promauto.With(reg)

	return &SessionMetrics{
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumina_sessions_total",
				Help: "Total meeting sessions by terminal outcome",
			},
			[]string{"outcome"},
		),
		SessionActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lumina_session_active",
				Help: "1 while a meeting session holds the active slot",
			},
		),
		SessionSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lumina_session_seconds",
				Help:    "Session duration from navigation to teardown",
				Buckets: []float64{30, 60, 300, 900, 1800, 3600, 7200},
			},
		),
		AdmissionWaitSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lumina_admission_wait_seconds",
				Help:    "Time between join click and admission",
				Buckets: []float64{1, 5, 10, 30, 60, 90, 120},
			},
		),
		MeetingsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lumina_meetings_dropped_total",
				Help: "Meetings skipped because a session was already active",
			},
		),

		RecordedSeconds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lumina_recorded_seconds_total",
				Help: "Total seconds of audio captured",
			},
		),
		RecordingBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lumina_recording_bytes",
				Help:    "Size of finished recordings",
				Buckets: prometheus.ExponentialBuckets(1<<20, 4, 8),
			},
		),

		StagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumina_pipeline_stages_total",
				Help: "Pipeline stage completions by stage and status",
			},
			[]string{"stage", "status"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lumina_pipeline_stage_seconds",
				Help:    "Pipeline stage latency",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"stage"},
		),
		StoreRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lumina_store_retries_total",
				Help: "Persist-stage retry attempts",
			},
		),

		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumina_calendar_polls_total",
				Help: "Calendar polls by result",
			},
			[]string{"result"},
		),
	}
}

// RecordSessionEnd records a finished session with its terminal outcome.
func (m *SessionMetrics) RecordSessionEnd(outcome string, seconds float64) {
	m.SessionsTotal.WithLabelValues(outcome).Inc()
	m.SessionSeconds.Observe(seconds)
}

// RecordStage records a pipeline stage completion.
func (m *SessionMetrics) RecordStage(stage, status string, seconds float64) {
	m.StagesTotal.WithLabelValues(stage, status).Inc()
	m.StageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordRecording records a finished recording artifact.
func (m *SessionMetrics) RecordRecording(seconds float64, bytes int64) {
	m.RecordedSeconds.Add(seconds)
	m.RecordingBytes.Observe(float64(bytes))
}

// RecordPoll records a calendar poll outcome ("ok", "error", "dropped").
func (m *SessionMetrics) RecordPoll(result string) {
	m.PollsTotal.WithLabelValues(result).Inc()
}
