package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir(), logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return s
}

func TestNewFSStore_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFSStore(dir, logging.NewNopLogger()); err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	for _, sub := range []string{"recordings", "transcripts", "minutes", "staging"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", sub)
		}
	}
}

func TestStoreRecording(t *testing.T) {
	s := newTestStore(t)

	src := s.StagingPath("m1")
	if err := os.WriteFile(src, []byte("RIFF-audio-data"), 0o644); err != nil {
		t.Fatal(err)
	}

	ref, err := s.StoreRecording(context.Background(), "m1", src)
	if err != nil {
		t.Fatalf("StoreRecording: %v", err)
	}
	if ref != s.RecordingPath("m1") {
		t.Errorf("ref = %q, want %q", ref, s.RecordingPath("m1"))
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		t.Fatalf("reading stored recording: %v", err)
	}
	if string(data) != "RIFF-audio-data" {
		t.Errorf("stored content mismatch: %q", data)
	}

	// The staged source is gone after a successful store.
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("expected staged file to be removed")
	}
}

func TestStoreRecording_EmptySource(t *testing.T) {
	s := newTestStore(t)

	src := s.StagingPath("m2")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StoreRecording(context.Background(), "m2", src); err == nil {
		t.Fatal("expected error for empty recording")
	}
}

func TestStoreRecording_MissingSource(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.StoreRecording(context.Background(), "m3", "/does/not/exist.wav"); err == nil {
		t.Fatal("expected error for missing recording")
	}
}

func TestStoreRecording_CopyFailureIsRetryable(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	src := s.StagingPath("m4")
	if err := os.WriteFile(src, []byte("RIFF-audio-data"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Replace the recordings directory with a file so the copy cannot land.
	recDir := filepath.Join(dir, "recordings")
	if err := os.RemoveAll(recDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(recDir, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = s.StoreRecording(context.Background(), "m4", src)
	if err == nil {
		t.Fatal("expected error for broken recordings directory")
	}
	if code := errors.CodeOf(err); code != errors.ErrTransientIO {
		t.Errorf("error code = %s, want %s", code, errors.ErrTransientIO)
	}
	if !errors.IsRetryable(errors.CodeOf(err)) {
		t.Error("storage copy failure should be retryable")
	}

	// The staged source survives for the next attempt.
	if _, err := os.Stat(src); err != nil {
		t.Error("staged recording should survive a failed copy")
	}
}

func TestSaveTranscript(t *testing.T) {
	s := newTestStore(t)

	ref, err := s.SaveTranscript(context.Background(), "m1", "hello world")
	if err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	data, err := os.ReadFile(ref)
	if err != nil || string(data) != "hello world" {
		t.Errorf("transcript content = %q, err %v", data, err)
	}
}

func TestSaveMinutes(t *testing.T) {
	s := newTestStore(t)

	jsonRef, err := s.SaveMinutes(context.Background(), "m1",
		[]byte(`{"summary":"s"}`), "# Minutes\n")
	if err != nil {
		t.Fatalf("SaveMinutes: %v", err)
	}

	if data, err := os.ReadFile(jsonRef); err != nil || string(data) != `{"summary":"s"}` {
		t.Errorf("minutes json = %q, err %v", data, err)
	}

	mdRef := jsonRef[:len(jsonRef)-5] + ".md"
	if data, err := os.ReadFile(mdRef); err != nil || string(data) != "# Minutes\n" {
		t.Errorf("minutes markdown = %q, err %v", data, err)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SaveTranscript(ctx, "m1", "text"); err == nil {
		t.Error("expected context error")
	}
}
