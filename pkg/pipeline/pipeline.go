// Package pipeline runs the post-meeting processing chain: persist the
// recording, transcribe it, generate minutes, and notify recipients. Stages
// run strictly in order; each completed stage is a precondition for the
// next, and a failed stage preserves everything upstream of it.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/minutes"
	"github.com/luminahq/lumina/pkg/notify"
	"github.com/luminahq/lumina/pkg/observability"
	"github.com/luminahq/lumina/pkg/store"
	"github.com/luminahq/lumina/pkg/transcribe"
)

// Stage names, in execution order.
const (
	StagePersist    = "persist"
	StageTranscribe = "transcribe"
	StageMinutes    = "minutes"
	StageNotify     = "notify"
)

// Input describes the recording handed to the pipeline when a session ends.
type Input struct {
	MeetingID    string
	MeetingTitle string
	// RecordingPath is the staged recording. Empty means the session
	// captured no audio.
	RecordingPath string
	// TranscriptAttachment controls whether the notification email attaches
	// the transcript file.
	TranscriptAttachment bool
}

// Run reports what one pipeline invocation attempted and achieved. Partial
// results are normal: a failed minutes stage still leaves a stored recording
// and transcript behind, and the Run says so.
type Run struct {
	RunID           string
	MeetingID       string
	StagesAttempted []string
	StagesSucceeded []string
	RecordingRef    string
	TranscriptRef   string
	MinutesRef      string
	Notified        bool
	Err             error
	StartedAt       time.Time
	EndedAt         time.Time
}

// ErrorCode returns the classified code of the run's error, or "".
func (r *Run) ErrorCode() string {
	if r.Err == nil {
		return ""
	}
	return string(errors.CodeOf(r.Err))
}

// Coordinator wires the pipeline stages to their collaborators.
type Coordinator struct {
	cfg         config.PipelineConfig
	store       *store.FSStore
	transcriber transcribe.Transcriber
	generator   minutes.Generator
	notifier    notify.Notifier
	metrics     *observability.SessionMetrics
	tracer      *observability.Tracer
	logger      logging.Logger
	retry       RetryPolicy
	now         func() time.Time
}

// NewCoordinator builds a pipeline coordinator. notifier may be nil when no
// recipients are configured; the notify stage is then skipped.
func NewCoordinator(
	cfg config.PipelineConfig,
	artifacts *store.FSStore,
	transcriber transcribe.Transcriber,
	generator minutes.Generator,
	notifier notify.Notifier,
	metrics *observability.SessionMetrics,
	logger logging.Logger,
) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		store:       artifacts,
		transcriber: transcriber,
		generator:   generator,
		notifier:    notifier,
		metrics:     metrics,
		tracer:      observability.NewTracer(),
		logger:      logger,
		retry:       NewRetryPolicy(cfg.MaxStoreAttempts),
		now:         time.Now,
	}
}

// Process runs the pipeline for one recording. It never panics its caller:
// all failures land in Run.Err with upstream results preserved.
func (c *Coordinator) Process(ctx context.Context, in Input) *Run {
	run := &Run{
		RunID:     uuid.NewString(),
		MeetingID: in.MeetingID,
		StartedAt: c.now(),
	}
	defer func() { run.EndedAt = c.now() }()

	ctx, span := c.tracer.StartPipelineSpan(ctx, in.MeetingID)
	defer func() { observability.EndWithError(span, run.Err, run.ErrorCode()) }()

	log := c.logger.With(
		logging.F("run_id", run.RunID),
		logging.F("meeting_id", in.MeetingID))
	log.Info("pipeline run started")

	if !c.persist(ctx, in, run, log) {
		return run
	}
	if !c.transcribeStage(ctx, in, run, log) {
		return run
	}
	if !c.minutesStage(ctx, in, run, log) {
		return run
	}
	c.notifyStage(ctx, in, run, log)

	log.Info("pipeline run finished",
		logging.F("succeeded", len(run.StagesSucceeded)),
		logging.F("attempted", len(run.StagesAttempted)))
	return run
}

// persist stores the recording durably, retrying transient failures. It
// returns false when downstream stages must not run.
func (c *Coordinator) persist(ctx context.Context, in Input, run *Run, log logging.Logger) bool {
	if in.RecordingPath == "" {
		// Nothing was captured. Not an error; there is simply nothing to do.
		log.Warn("no recording artifact, pipeline stops")
		run.Err = errors.NewPipelineError(errors.ErrEmptyArtifact, StagePersist,
			"session produced no recording", nil)
		return false
	}
	if info, err := os.Stat(in.RecordingPath); err != nil || info.Size() == 0 {
		log.Warn("recording artifact is missing or empty, pipeline stops",
			logging.F("path", in.RecordingPath))
		run.Err = errors.NewPipelineError(errors.ErrEmptyArtifact, StagePersist,
			"recording artifact is missing or empty", nil)
		return false
	}

	if c.cfg.SkipPersist {
		c.skip(run, StagePersist, log)
		run.RecordingRef = in.RecordingPath
		return true
	}

	done := c.begin(run, StagePersist)
	err := c.retry.Do(ctx, log, StagePersist,
		func() { c.metrics.StoreRetriesTotal.Inc() },
		func() error {
			ref, err := c.store.StoreRecording(ctx, in.MeetingID, in.RecordingPath)
			if err != nil {
				return err
			}
			run.RecordingRef = ref
			return nil
		})
	done(err)
	if err != nil {
		run.Err = errors.ClassifyError(err, StagePersist)
		log.Error("persist stage failed, recording remains staged",
			logging.F("staged", in.RecordingPath), logging.Err(err))
		return false
	}
	return true
}

func (c *Coordinator) transcribeStage(ctx context.Context, in Input, run *Run, log logging.Logger) bool {
	if c.cfg.SkipTranscribe {
		c.skip(run, StageTranscribe, log)
		return false
	}

	done := c.begin(run, StageTranscribe)
	text, err := c.transcriber.Transcribe(ctx, run.RecordingRef)
	if err == nil && text == "" {
		err = errors.NewPipelineError(errors.ErrEmptyTranscript, StageTranscribe,
			"transcription produced no text", nil)
	}
	if err == nil {
		var saveErr error
		run.TranscriptRef, saveErr = c.store.SaveTranscript(ctx, in.MeetingID, text)
		err = saveErr
	}
	done(err)
	if err != nil {
		run.Err = errors.ClassifyError(err, StageTranscribe)
		log.Error("transcribe stage failed", logging.Err(err))
		return false
	}
	return true
}

func (c *Coordinator) minutesStage(ctx context.Context, in Input, run *Run, log logging.Logger) bool {
	if c.cfg.SkipMinutes {
		c.skip(run, StageMinutes, log)
		return false
	}

	done := c.begin(run, StageMinutes)
	err := func() error {
		transcript, err := os.ReadFile(run.TranscriptRef)
		if err != nil {
			return err
		}
		m, err := c.generator.Generate(ctx, in.MeetingTitle, string(transcript))
		if err != nil {
			return err
		}
		m.MeetingID = in.MeetingID

		doc, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		run.MinutesRef, err = c.store.SaveMinutes(ctx, in.MeetingID, doc, m.Markdown())
		return err
	}()
	done(err)
	if err != nil {
		run.Err = errors.ClassifyError(err, StageMinutes)
		log.Error("minutes stage failed, transcript preserved",
			logging.F("transcript", run.TranscriptRef), logging.Err(err))
		return false
	}
	return true
}

// notifyStage is best-effort: a delivery failure is recorded on the run but
// the run still counts the upstream stages as succeeded.
func (c *Coordinator) notifyStage(ctx context.Context, in Input, run *Run, log logging.Logger) {
	if c.cfg.SkipNotify || c.notifier == nil {
		c.skip(run, StageNotify, log)
		return
	}

	markdown, err := os.ReadFile(minutesMarkdownPath(run.MinutesRef))
	if err != nil {
		run.Err = errors.ClassifyError(err, StageNotify)
		log.Error("could not read minutes for notification", logging.Err(err))
		return
	}

	attachment := ""
	if in.TranscriptAttachment {
		attachment = run.TranscriptRef
	}

	done := c.begin(run, StageNotify)
	err = c.notifier.SendMinutes(ctx, in.MeetingTitle, string(markdown), attachment)
	done(err)
	if err != nil {
		run.Err = errors.ClassifyError(err, StageNotify)
		log.Error("notify stage failed, minutes remain on disk",
			logging.F("minutes", run.MinutesRef), logging.Err(err))
		return
	}
	run.Notified = true
}

// begin marks a stage attempted and returns the completion callback that
// records metrics and the success list.
func (c *Coordinator) begin(run *Run, stage string) func(error) {
	run.StagesAttempted = append(run.StagesAttempted, stage)
	start := c.now()
	return func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		} else {
			run.StagesSucceeded = append(run.StagesSucceeded, stage)
		}
		c.metrics.RecordStage(stage, status, time.Since(start).Seconds())
	}
}

func (c *Coordinator) skip(run *Run, stage string, log logging.Logger) {
	log.Info("stage skipped by configuration", logging.F("stage", stage))
	c.metrics.RecordStage(stage, "skipped", 0)
}

// minutesMarkdownPath derives the .md path from the canonical .json ref.
func minutesMarkdownPath(jsonRef string) string {
	if len(jsonRef) > 5 && jsonRef[len(jsonRef)-5:] == ".json" {
		return jsonRef[:len(jsonRef)-5] + ".md"
	}
	return jsonRef
}
