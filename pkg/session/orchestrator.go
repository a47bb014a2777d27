package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/audio"
	"github.com/luminahq/lumina/pkg/browser"
	"github.com/luminahq/lumina/pkg/calendar"
	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/ledger"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/observability"
	"github.com/luminahq/lumina/pkg/pipeline"
	"github.com/luminahq/lumina/pkg/store"
)

// ledgerTimeout bounds each ledger write.
const ledgerTimeout = 10 * time.Second

// DriverFactory launches a browser for one session.
type DriverFactory func(ctx context.Context) (browser.Driver, error)

// RecorderFactory builds a recorder for one session.
type RecorderFactory func() audio.Recorder

// Orchestrator runs sessions one at a time and hands finished recordings to
// the pipeline. The active-session slot is released as soon as the browser
// is torn down, so the pipeline for one meeting may still be running while
// the next session joins.
type Orchestrator struct {
	cfg         *config.Config
	slot        *Slot
	newDriver   DriverFactory
	newRecorder RecorderFactory
	artifacts   *store.FSStore
	pipeline    *pipeline.Coordinator
	ledger      *ledger.Ledger
	metrics     *observability.SessionMetrics
	logger      logging.Logger

	wg sync.WaitGroup
}

// NewOrchestrator wires the orchestrator. ledger may be nil.
func NewOrchestrator(
	cfg *config.Config,
	newDriver DriverFactory,
	newRecorder RecorderFactory,
	artifacts *store.FSStore,
	coordinator *pipeline.Coordinator,
	sessionLedger *ledger.Ledger,
	metrics *observability.SessionMetrics,
	logger logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		slot:        &Slot{},
		newDriver:   newDriver,
		newRecorder: newRecorder,
		artifacts:   artifacts,
		pipeline:    coordinator,
		ledger:      sessionLedger,
		metrics:     metrics,
		logger:      logger,
	}
}

// Slot exposes the active-session slot for status queries.
func (o *Orchestrator) Slot() *Slot { return o.slot }

// HandleMeeting attends one meeting end to end. It returns ErrSessionActive
// without side effects when a session is already running. The session phase
// is synchronous; post-processing is dispatched in the background.
func (o *Orchestrator) HandleMeeting(ctx context.Context, meeting calendar.Meeting) (*Result, error) {
	if err := o.slot.Acquire(meeting.ID); err != nil {
		o.metrics.MeetingsDropped.Inc()
		o.logger.Warn("meeting dropped, session already active",
			logging.F("meeting_id", meeting.ID),
			logging.F("title", meeting.Title))
		return nil, err
	}
	o.metrics.SessionActive.Set(1)
	defer func() {
		o.metrics.SessionActive.Set(0)
		o.slot.Release()
	}()

	result := o.runSession(ctx, meeting)
	o.recordSession(result)

	if !result.Artifact.Empty() {
		o.dispatchPipeline(meeting, result)
	} else if result.Outcome != OutcomeJoinFailed {
		o.logger.Warn("session produced no recording, skipping pipeline",
			logging.F("meeting_id", meeting.ID))
	}
	return result, result.Err
}

// runSession launches the browser and recorder and drives the session.
func (o *Orchestrator) runSession(ctx context.Context, meeting calendar.Meeting) *Result {
	started := time.Now()
	driver, err := o.newDriver(ctx)
	if err != nil {
		o.logger.Error("browser launch failed", logging.Err(err))
		o.metrics.RecordSessionEnd(OutcomeJoinFailed, time.Since(started).Seconds())
		return &Result{
			MeetingID:    meeting.ID,
			MeetingTitle: meeting.Title,
			FinalState:   StateJoinFailed,
			Outcome:      OutcomeJoinFailed,
			StartedAt:    started,
			EndedAt:      time.Now(),
			Err:          errors.ClassifyError(err, "session"),
		}
	}

	sess := New(meeting, driver, o.newRecorder(), o.cfg.Browser,
		o.artifacts.StagingPath(meeting.ID), o.metrics, o.logger)
	return sess.Run(ctx)
}

// dispatchPipeline processes the recording in the background. Wait() drains
// these before the daemon exits.
func (o *Orchestrator) dispatchPipeline(meeting calendar.Meeting, result *Result) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		// The session context is gone by now; post-processing gets its own
		// lifetime so a cancelled session still yields artifacts.
		run := o.pipeline.Process(context.Background(), pipeline.Input{
			MeetingID:     meeting.ID,
			MeetingTitle:  meeting.Title,
			RecordingPath: result.Artifact.Path,
		})
		o.recordRun(run)
	}()
}

// ProcessRecording runs the pipeline synchronously for an existing file.
// Used by the process command for re-runs.
func (o *Orchestrator) ProcessRecording(ctx context.Context, in pipeline.Input) *pipeline.Run {
	run := o.pipeline.Process(ctx, in)
	o.recordRun(run)
	return run
}

// Wait blocks until all dispatched pipeline runs finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) recordSession(result *Result) {
	if o.ledger == nil {
		return
	}
	errCode := ""
	if result.Err != nil {
		errCode = string(errors.CodeOf(result.Err))
	}
	sessionID := result.SessionID
	if sessionID == "" {
		// Browser launch failures never built a session; record them under
		// a fresh ID.
		sessionID = uuid.NewString()
	}
	rec := ledger.SessionRecord{
		SessionID:    sessionID,
		MeetingID:    result.MeetingID,
		MeetingTitle: result.MeetingTitle,
		Outcome:      result.Outcome,
		ErrorCode:    errCode,
		StartedAt:    result.StartedAt,
		EndedAt:      result.EndedAt,
		RecordingRef: result.Artifact.Path,
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := o.ledger.RecordSession(ctx, rec); err != nil {
		o.logger.Warn("could not record session in ledger", logging.Err(err))
	}
}

func (o *Orchestrator) recordRun(run *pipeline.Run) {
	if o.ledger == nil {
		return
	}
	rec := ledger.RunRecord{
		RunID:           run.RunID,
		MeetingID:       run.MeetingID,
		StagesAttempted: run.StagesAttempted,
		StagesSucceeded: run.StagesSucceeded,
		TranscriptRef:   run.TranscriptRef,
		MinutesRef:      run.MinutesRef,
		Notified:        run.Notified,
		ErrorCode:       run.ErrorCode(),
		StartedAt:       run.StartedAt,
		EndedAt:         run.EndedAt,
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := o.ledger.RecordRun(ctx, rec); err != nil {
		o.logger.Warn("could not record pipeline run in ledger", logging.Err(err))
	}
}
