package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for session operations.
const TracerName = "lumina"

// Span attribute keys.
const (
	AttrSessionID  = "session_id"
	AttrMeetingID  = "meeting_id"
	AttrStage      = "stage"
	AttrState      = "state"
	AttrOutcome    = "outcome"
	AttrErrorCode  = "error_code"
	AttrDurationMs = "duration_ms"
)

// Span names.
const (
	SpanSession      = "lumina.session"
	SpanPipelineRun  = "lumina.pipeline_run"
	SpanCalendarPoll = "lumina.calendar_poll"
)

// Tracer provides tracing for sessions and pipeline runs.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a session tracer.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartSessionSpan starts the root span for one meeting session.
func (t *Tracer) StartSessionSpan(ctx context.Context, sessionID, meetingID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanSession,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrMeetingID, meetingID),
		),
	)
}

// StartPipelineSpan starts the root span for one pipeline run.
func (t *Tracer) StartPipelineSpan(ctx context.Context, meetingID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanPipelineRun,
		trace.WithAttributes(attribute.String(AttrMeetingID, meetingID)),
	)
}

// StartStageSpan starts a span for a pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "lumina.stage."+stage,
		trace.WithAttributes(attribute.String(AttrStage, stage)),
	)
}

// EndWithError records err on span and ends it; a nil err ends the span
// with an Ok status.
func EndWithError(span trace.Span, err error, errorCode string) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorCode, errorCode))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// TraceID returns the trace ID from the context, or "".
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
