// Package session runs one automated meeting attendance from navigation to
// teardown. A Session owns a browser driver and an audio recorder for its
// lifetime and walks a strictly forward state machine; the Orchestrator
// above it enforces the single-active-session rule and hands the captured
// recording to the pipeline.
package session

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/audio"
	"github.com/luminahq/lumina/pkg/browser"
	"github.com/luminahq/lumina/pkg/calendar"
	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/observability"
)

// Terminal outcomes reported on a Result.
const (
	OutcomeCompleted  = "completed"
	OutcomeJoinFailed = "join_failed"
	OutcomeCancelled  = "cancelled"
)

// admissionPoll is how often the admission wait re-probes for the
// in-meeting signal.
const admissionPoll = time.Second

// Result reports what one session did. A cancelled or completed session may
// still carry a non-empty Artifact worth processing.
type Result struct {
	SessionID    string
	MeetingID    string
	MeetingTitle string
	FinalState   State
	Outcome      string
	Artifact     audio.Artifact
	StartedAt    time.Time
	EndedAt      time.Time
	Err          error
}

// Session is one meeting attendance in progress.
type Session struct {
	id          string
	meeting     calendar.Meeting
	driver      browser.Driver
	recorder    audio.Recorder
	cfg         config.BrowserConfig
	stagingPath string
	logger      logging.Logger
	metrics     *observability.SessionMetrics
	tracer      *observability.Tracer

	state      State
	recStarted bool
	recStopped bool
	artifact   audio.Artifact

	rng *rand.Rand
	now func() time.Time
}

// New builds a session for one meeting. The driver and recorder are owned
// by the session from here on; Run tears both down before returning.
func New(
	meeting calendar.Meeting,
	driver browser.Driver,
	recorder audio.Recorder,
	cfg config.BrowserConfig,
	stagingPath string,
	metrics *observability.SessionMetrics,
	logger logging.Logger,
) *Session {
	id := uuid.NewString()
	return &Session{
		id:          id,
		meeting:     meeting,
		driver:      driver,
		recorder:    recorder,
		cfg:         cfg,
		stagingPath: stagingPath,
		logger: logger.With(
			logging.F("session_id", id),
			logging.F("meeting_id", meeting.ID)),
		metrics: metrics,
		tracer:  observability.NewTracer(),
		state:   StateIdle,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// ID returns the session's unique ID.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Run drives the session to a terminal state. It always returns a Result;
// failures are reported on it rather than panicking upward. The recorder is
// stopped exactly once and the browser is closed last, whatever path the
// session took.
func (s *Session) Run(ctx context.Context) *Result {
	result := &Result{
		SessionID:    s.id,
		MeetingID:    s.meeting.ID,
		MeetingTitle: s.meeting.Title,
		StartedAt:    s.now(),
	}

	ctx = logging.WithSessionID(ctx, s.id)
	ctx, span := s.tracer.StartSessionSpan(ctx, s.id, s.meeting.ID)

	defer func() {
		result.Artifact = s.stopRecording()
		if err := s.driver.Close(); err != nil {
			s.logger.Warn("browser teardown error", logging.Err(err))
		}
		result.FinalState = s.state
		result.EndedAt = s.now()

		seconds := result.EndedAt.Sub(result.StartedAt).Seconds()
		s.metrics.RecordSessionEnd(result.Outcome, seconds)
		if !result.Artifact.Empty() {
			s.metrics.RecordRecording(result.Artifact.Duration.Seconds(), result.Artifact.Bytes)
		}
		errCode := ""
		if result.Err != nil {
			errCode = string(errors.CodeOf(result.Err))
		}
		observability.EndWithError(span, result.Err, errCode)

		s.logger.Info("session finished",
			logging.F("outcome", result.Outcome),
			logging.F("state", s.state.String()),
			logging.F("duration", result.EndedAt.Sub(result.StartedAt).Truncate(time.Second).String()))
	}()

	s.logger.Info("session starting",
		logging.F("title", s.meeting.Title),
		logging.F("link", s.meeting.JoinLink))

	if err := s.navigate(ctx); err != nil {
		s.fail(result, err)
		return result
	}
	if err := s.preJoinSetup(ctx); err != nil {
		s.fail(result, err)
		return result
	}
	admitted, err := s.awaitAdmission(ctx)
	if err != nil {
		s.fail(result, err)
		return result
	}
	if !admitted {
		s.fail(result, errors.NewPipelineError(errors.ErrJoinFailed, "session",
			"not admitted to the meeting", nil))
		return result
	}

	s.monitor(ctx, result)
	return result
}

// navigate loads the meeting URL.
func (s *Session) navigate(ctx context.Context) error {
	s.to(StateNavigating)
	return s.driver.Navigate(ctx, s.meeting.JoinLink)
}

// preJoinSetup mutes mic and camera, then clicks join. The mute toggles are
// best-effort: their absence means the device is already off.
func (s *Session) preJoinSetup(ctx context.Context) error {
	s.to(StatePreJoinMediaSetup)

	if _, ok := s.driver.FindAndAct(ctx, micOffCandidates, browser.ActionClick, s.cfg.ElementTimeout); ok {
		s.logger.Debug("microphone muted")
	} else {
		s.logger.Debug("microphone toggle not found, assuming already muted")
	}
	if _, ok := s.driver.FindAndAct(ctx, camOffCandidates, browser.ActionClick, s.cfg.ElementTimeout); ok {
		s.logger.Debug("camera turned off")
	} else {
		s.logger.Debug("camera toggle not found, assuming already off")
	}

	match, ok := s.driver.FindAndAct(ctx, joinCandidates, browser.ActionClick, s.cfg.ElementTimeout)
	if !ok {
		return errors.NewPipelineError(errors.ErrJoinFailed, "session",
			"join button not found on pre-join screen", nil)
	}
	s.logger.Info("join requested", logging.F("via", match.Candidate.String()))
	return nil
}

// awaitAdmission waits for the in-meeting signal. If the admission timeout
// expires it grants a grace period and re-probes once directly: hosts often
// admit late, and the signal can lag the click.
func (s *Session) awaitAdmission(ctx context.Context) (bool, error) {
	s.to(StateAwaitingAdmission)
	start := s.now()

	deadline := start.Add(s.cfg.AdmissionTimeout)
	for s.now().Before(deadline) {
		if s.driver.Probe(ctx, inMeetingSelector) {
			s.metrics.AdmissionWaitSeconds.Observe(s.now().Sub(start).Seconds())
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(admissionPoll):
		}
	}

	s.logger.Warn("admission timeout reached, granting grace period",
		logging.F("grace", s.cfg.AdmissionGrace.String()))
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(s.cfg.AdmissionGrace):
	}

	if s.driver.Probe(ctx, inMeetingSelector) {
		s.metrics.AdmissionWaitSeconds.Observe(s.now().Sub(start).Seconds())
		return true, nil
	}
	return false, nil
}

// monitor is the in-meeting phase: start recording, then poll until the
// in-meeting signal disappears or the context ends.
func (s *Session) monitor(ctx context.Context, result *Result) {
	s.to(StateInMeeting)
	s.logger.Info("admitted to meeting, recording")

	if err := s.recorder.Start(ctx, s.stagingPath); err != nil {
		// Attend without recording rather than abandoning the meeting; the
		// pipeline will report the missing artifact.
		s.logger.Error("could not start recording", logging.Err(err))
	} else {
		s.recStarted = true
	}

	nextActivity := s.nextActivityTime()
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session cancelled, leaving meeting")
			s.to(StateEnded)
			result.Outcome = OutcomeCancelled
			result.Err = errors.NewPipelineError(errors.ErrContextCancelled,
				"session", "session cancelled", ctx.Err())
			return
		case <-ticker.C:
		}

		if !s.driver.Probe(ctx, inMeetingSelector) {
			s.logger.Info("meeting ended")
			s.to(StateEnded)
			result.Outcome = OutcomeCompleted
			return
		}

		if s.cfg.SyntheticActivity && s.now().After(nextActivity) {
			s.syntheticActivity(ctx)
			nextActivity = s.nextActivityTime()
		}
	}
}

// syntheticActivity performs one burst of low-amplitude interaction so the
// attendee does not look idle: a cursor nudge, occasionally a modifier tap.
func (s *Session) syntheticActivity(ctx context.Context) {
	if err := s.driver.Jitter(ctx); err != nil {
		s.logger.Debug("cursor jitter failed", logging.Err(err))
		return
	}
	if s.rng.Intn(3) == 0 {
		if err := s.driver.PressKey(ctx); err != nil {
			s.logger.Debug("key press failed", logging.Err(err))
		}
	}
}

// nextActivityTime schedules the next synthetic-activity burst 20 to 40
// seconds out.
func (s *Session) nextActivityTime() time.Time {
	return s.now().Add(20*time.Second + time.Duration(s.rng.Int63n(int64(20*time.Second))))
}

// stopRecording stops the recorder exactly once and caches the artifact.
func (s *Session) stopRecording() audio.Artifact {
	if !s.recStarted || s.recStopped {
		return s.artifact
	}
	s.recStopped = true

	artifact, err := s.recorder.Stop()
	if err != nil {
		s.logger.Error("stopping recording failed", logging.Err(err))
		return audio.Artifact{}
	}
	s.artifact = artifact
	return artifact
}

// fail moves the session to JoinFailed and records the error.
func (s *Session) fail(result *Result, err error) {
	s.state = StateJoinFailed
	result.Outcome = OutcomeJoinFailed
	result.Err = errors.ClassifyError(err, "session")
	if errors.CodeOf(result.Err) == errors.ErrContextCancelled {
		result.Outcome = OutcomeCancelled
	}
	s.logger.Error("session failed before reaching the meeting",
		logging.F("state", s.state.String()), logging.Err(err))
}

// to transitions the state machine, logging an invalid transition instead
// of performing it.
func (s *Session) to(next State) {
	if !canTransition(s.state, next) {
		s.logger.Warn("invalid state transition ignored",
			logging.F("from", s.state.String()),
			logging.F("to", next.String()))
		return
	}
	s.logger.Debug("state transition",
		logging.F("from", s.state.String()),
		logging.F("to", next.String()))
	s.state = next
}
