package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/audio"
	"github.com/luminahq/lumina/pkg/browser"
	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/minutes"
	"github.com/luminahq/lumina/pkg/observability"
	"github.com/luminahq/lumina/pkg/pipeline"
	"github.com/luminahq/lumina/pkg/store"
)

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	return "stub transcript", nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, title, transcript string) (*minutes.Minutes, error) {
	return &minutes.Minutes{Title: title, Summary: "stub summary"}, nil
}

type orchFixture struct {
	orch      *Orchestrator
	store     *store.FSStore
	driver    *fakeDriver
	recorder  *fakeRecorder
	launches  int
	launchErr error
}

func newOrchFixture(t *testing.T, driver *fakeDriver, recorder *fakeRecorder) *orchFixture {
	t.Helper()
	fs, err := store.NewFSStore(t.TempDir(), logging.NewNopLogger())
	require.NoError(t, err)

	cfg := &config.Config{
		Browser:  testBrowserCfg(),
		Pipeline: config.PipelineConfig{MaxStoreAttempts: 1},
	}
	metrics := observability.NewSessionMetrics(prometheus.NewRegistry())
	coord := pipeline.NewCoordinator(cfg.Pipeline, fs, stubTranscriber{}, stubGenerator{},
		nil, metrics, logging.NewNopLogger())

	f := &orchFixture{store: fs, driver: driver, recorder: recorder}
	f.orch = NewOrchestrator(cfg,
		func(ctx context.Context) (browser.Driver, error) {
			f.launches++
			if f.launchErr != nil {
				return nil, f.launchErr
			}
			return f.driver, nil
		},
		func() audio.Recorder { return f.recorder },
		fs, coord, nil, metrics, logging.NewNopLogger())
	return f
}

func TestHandleMeeting_FullFlow(t *testing.T) {
	driver := newFakeDriver(true, false)
	recorder := &fakeRecorder{}
	f := newOrchFixture(t, driver, recorder)

	// The recorder "captures" into the staging path the orchestrator hands
	// out, the way the real capture does.
	staged := f.store.StagingPath("meet-1")
	require.NoError(t, os.WriteFile(staged, []byte("RIFF-fake-audio"), 0o644))
	recorder.artifact = audio.Artifact{Path: staged, Duration: 5 * time.Second, Bytes: 15}

	result, err := f.orch.HandleMeeting(context.Background(), testMeeting())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)

	// Slot frees as soon as the session ends, before the pipeline drains.
	active, _ := f.orch.Slot().Active()
	assert.False(t, active)

	f.orch.Wait()
	assert.FileExists(t, f.store.RecordingPath("meet-1"))
	assert.NoFileExists(t, staged)
}

func TestHandleMeeting_RejectsWhenBusy(t *testing.T) {
	f := newOrchFixture(t, newFakeDriver(), &fakeRecorder{})
	require.NoError(t, f.orch.Slot().Acquire("other-meeting"))

	result, err := f.orch.HandleMeeting(context.Background(), testMeeting())

	assert.Nil(t, result)
	assert.True(t, errors.IsSessionActive(err))
	assert.Equal(t, 0, f.launches)

	// The busy meeting's claim is untouched.
	active, meetingID := f.orch.Slot().Active()
	assert.True(t, active)
	assert.Equal(t, "other-meeting", meetingID)
}

func TestHandleMeeting_BrowserLaunchFailure(t *testing.T) {
	f := newOrchFixture(t, newFakeDriver(), &fakeRecorder{})
	f.launchErr = fmt.Errorf("chrome not found in PATH")

	result, err := f.orch.HandleMeeting(context.Background(), testMeeting())

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, OutcomeJoinFailed, result.Outcome)
	assert.Equal(t, StateJoinFailed, result.FinalState)
	assert.False(t, result.EndedAt.Before(result.StartedAt))

	// Slot must be released after a failed launch or the daemon wedges.
	active, _ := f.orch.Slot().Active()
	assert.False(t, active)
}

func TestHandleMeeting_JoinFailedNoPipeline(t *testing.T) {
	driver := newFakeDriver()
	driver.joinOK = false
	f := newOrchFixture(t, driver, &fakeRecorder{})

	result, err := f.orch.HandleMeeting(context.Background(), testMeeting())

	require.Error(t, err)
	assert.Equal(t, OutcomeJoinFailed, result.Outcome)

	f.orch.Wait()
	assert.NoFileExists(t, f.store.RecordingPath("meet-1"))
}

func TestProcessRecording(t *testing.T) {
	f := newOrchFixture(t, newFakeDriver(), &fakeRecorder{})
	staged := f.store.StagingPath("rerun-1")
	require.NoError(t, os.WriteFile(staged, []byte("RIFF-fake-audio"), 0o644))

	run := f.orch.ProcessRecording(context.Background(), pipeline.Input{
		MeetingID:     "rerun-1",
		MeetingTitle:  "Rerun",
		RecordingPath: staged,
	})

	require.NoError(t, run.Err)
	assert.FileExists(t, run.RecordingRef)
	assert.FileExists(t, run.TranscriptRef)
	assert.FileExists(t, run.MinutesRef)
}
