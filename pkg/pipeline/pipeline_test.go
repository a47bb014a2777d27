package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/minutes"
	"github.com/luminahq/lumina/pkg/observability"
	"github.com/luminahq/lumina/pkg/store"
)

type fakeTranscriber struct {
	text     string
	err      error
	lastPath string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	f.lastPath = path
	return f.text, f.err
}

type fakeGenerator struct {
	err error
}

func (f *fakeGenerator) Generate(ctx context.Context, title, transcript string) (*minutes.Minutes, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &minutes.Minutes{
		Title:       title,
		GeneratedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Model:       "test-model",
		Summary:     "summary of " + transcript,
	}, nil
}

type fakeNotifier struct {
	err            error
	called         bool
	lastTitle      string
	lastMarkdown   string
	lastAttachment string
}

func (f *fakeNotifier) SendMinutes(ctx context.Context, meetingTitle, markdown, attachmentPath string) error {
	f.called = true
	f.lastTitle = meetingTitle
	f.lastMarkdown = markdown
	f.lastAttachment = attachmentPath
	return f.err
}

type testEnv struct {
	coord   *Coordinator
	store   *store.FSStore
	metrics *observability.SessionMetrics
	tr      *fakeTranscriber
	gen     *fakeGenerator
	not     *fakeNotifier
}

func newTestEnv(t *testing.T, cfg config.PipelineConfig) *testEnv {
	t.Helper()
	if cfg.MaxStoreAttempts == 0 {
		cfg.MaxStoreAttempts = 3
	}
	fs, err := store.NewFSStore(t.TempDir(), logging.NewNopLogger())
	require.NoError(t, err)

	env := &testEnv{
		store: fs,
		tr:    &fakeTranscriber{text: "the raw transcript"},
		gen:   &fakeGenerator{},
		not:   &fakeNotifier{},
	}
	env.metrics = observability.NewSessionMetrics(prometheus.NewRegistry())
	env.coord = NewCoordinator(cfg, fs, env.tr, env.gen, env.not, env.metrics, logging.NewNopLogger())
	env.coord.retry.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return env
}

// stagedRecording writes a fake WAV into the store's staging area and
// returns its path, the way a session hands its artifact off.
func (e *testEnv) stagedRecording(t *testing.T, meetingID string) string {
	t.Helper()
	path := e.store.StagingPath(meetingID)
	require.NoError(t, os.WriteFile(path, []byte("RIFF-fake-audio-data"), 0o644))
	return path
}

func TestProcess_FullRun(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})
	staged := env.stagedRecording(t, "meet-1")

	run := env.coord.Process(context.Background(), Input{
		MeetingID:            "meet-1",
		MeetingTitle:         "Design sync",
		RecordingPath:        staged,
		TranscriptAttachment: true,
	})

	require.NoError(t, run.Err)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, []string{StagePersist, StageTranscribe, StageMinutes, StageNotify}, run.StagesAttempted)
	assert.Equal(t, run.StagesAttempted, run.StagesSucceeded)
	assert.True(t, run.Notified)

	// Recording moved out of staging into durable storage.
	assert.NoFileExists(t, staged)
	assert.FileExists(t, run.RecordingRef)
	assert.FileExists(t, run.TranscriptRef)
	assert.FileExists(t, run.MinutesRef)
	assert.FileExists(t, minutesMarkdownPath(run.MinutesRef))

	assert.Equal(t, run.RecordingRef, env.tr.lastPath)
	assert.Equal(t, "Design sync", env.not.lastTitle)
	assert.Contains(t, env.not.lastMarkdown, "summary of the raw transcript")
	assert.Equal(t, run.TranscriptRef, env.not.lastAttachment)
	assert.False(t, run.EndedAt.Before(run.StartedAt))
}

func TestProcess_NoRecording(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})

	run := env.coord.Process(context.Background(), Input{MeetingID: "meet-1"})

	require.Error(t, run.Err)
	assert.Equal(t, string(errors.ErrEmptyArtifact), run.ErrorCode())
	assert.Empty(t, run.StagesAttempted)
	assert.False(t, env.not.called)
}

func TestProcess_EmptyRecordingFile(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})
	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: path,
	})

	require.Error(t, run.Err)
	assert.Equal(t, string(errors.ErrEmptyArtifact), run.ErrorCode())
}

func TestProcess_EmptyTranscriptStopsDownstream(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})
	env.tr.text = ""
	staged := env.stagedRecording(t, "meet-1")

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: staged,
	})

	require.Error(t, run.Err)
	assert.Equal(t, string(errors.ErrEmptyTranscript), run.ErrorCode())
	// Recording was persisted before the failure and must survive it.
	assert.Equal(t, []string{StagePersist}, run.StagesSucceeded)
	assert.FileExists(t, run.RecordingRef)
	assert.Empty(t, run.TranscriptRef)
	assert.False(t, env.not.called)
}

func TestProcess_MinutesFailurePreservesTranscript(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})
	env.gen.err = errors.NewPipelineError(errors.ErrCollaboratorFailure, StageMinutes,
		"model unavailable", nil)
	staged := env.stagedRecording(t, "meet-1")

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: staged,
	})

	require.Error(t, run.Err)
	assert.Equal(t, string(errors.ErrCollaboratorFailure), run.ErrorCode())
	assert.Equal(t, []string{StagePersist, StageTranscribe}, run.StagesSucceeded)
	assert.FileExists(t, run.TranscriptRef)
	assert.Empty(t, run.MinutesRef)
	assert.False(t, env.not.called)
}

func TestProcess_NotifyFailureIsBestEffort(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})
	env.not.err = fmt.Errorf("dial tcp: connection refused")
	staged := env.stagedRecording(t, "meet-1")

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		MeetingTitle:  "Standup",
		RecordingPath: staged,
	})

	// Upstream stages stand even though delivery failed.
	require.Error(t, run.Err)
	assert.False(t, run.Notified)
	assert.Equal(t, []string{StagePersist, StageTranscribe, StageMinutes}, run.StagesSucceeded)
	assert.FileExists(t, run.MinutesRef)
}

func TestProcess_NilNotifierSkips(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})
	env.coord.notifier = nil
	staged := env.stagedRecording(t, "meet-1")

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: staged,
	})

	require.NoError(t, run.Err)
	assert.False(t, run.Notified)
	assert.NotContains(t, run.StagesAttempted, StageNotify)
}

func TestProcess_SkipPersistUsesSourcePath(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{SkipPersist: true})
	staged := env.stagedRecording(t, "meet-1")

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: staged,
	})

	require.NoError(t, run.Err)
	assert.Equal(t, staged, run.RecordingRef)
	// Skipped, not attempted: the staged file stays where it was.
	assert.FileExists(t, staged)
	assert.NotContains(t, run.StagesAttempted, StagePersist)
}

func TestProcess_SkipTranscribeStopsChain(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{SkipTranscribe: true})
	staged := env.stagedRecording(t, "meet-1")

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: staged,
	})

	require.NoError(t, run.Err)
	assert.Equal(t, []string{StagePersist}, run.StagesSucceeded)
	assert.Empty(t, run.TranscriptRef)
	assert.False(t, env.not.called)
}

func TestProcess_PersistFailureLeavesRecordingStaged(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{})
	staged := env.stagedRecording(t, "meet-1")

	// Break the recordings directory so the copy cannot land.
	recDir := filepath.Dir(env.store.RecordingPath("meet-1"))
	require.NoError(t, os.RemoveAll(recDir))
	require.NoError(t, os.WriteFile(recDir, []byte("not a directory"), 0o644))

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: staged,
	})

	require.Error(t, run.Err)
	assert.Empty(t, run.StagesSucceeded)
	// The staged capture must survive a failed persist for manual recovery.
	assert.FileExists(t, staged)
	assert.False(t, env.not.called)
}

func TestProcess_PersistFailureConsumesAllAttempts(t *testing.T) {
	env := newTestEnv(t, config.PipelineConfig{MaxStoreAttempts: 3})
	staged := env.stagedRecording(t, "meet-1")

	recDir := filepath.Dir(env.store.RecordingPath("meet-1"))
	require.NoError(t, os.RemoveAll(recDir))
	require.NoError(t, os.WriteFile(recDir, []byte("not a directory"), 0o644))

	run := env.coord.Process(context.Background(), Input{
		MeetingID:     "meet-1",
		RecordingPath: staged,
	})

	require.Error(t, run.Err)
	// A failed storage copy is transient and walks the full backoff schedule:
	// two re-attempts after the first failure, then give up.
	assert.Equal(t, string(errors.ErrTransientIO), run.ErrorCode())
	assert.Equal(t, float64(2), testutil.ToFloat64(env.metrics.StoreRetriesTotal))
	assert.FileExists(t, staged)
}
