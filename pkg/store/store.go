// Package store persists session artifacts on the local filesystem. The
// layout under the data directory is one subdirectory per artifact kind:
//
//	recordings/<meeting-id>.wav
//	transcripts/<meeting-id>.txt
//	minutes/<meeting-id>.json
//	minutes/<meeting-id>.md
//
// Writes go through a temp file and rename so a crash never leaves a
// half-written artifact at its final path.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

// ArtifactStore persists recordings, transcripts, and minutes. The returned
// refs are paths a later stage or the operator can read back.
type ArtifactStore interface {
	// StoreRecording copies the recording at srcPath into durable storage
	// and returns the stored path.
	StoreRecording(ctx context.Context, meetingID, srcPath string) (string, error)

	// SaveTranscript writes the transcript text and returns its path.
	SaveTranscript(ctx context.Context, meetingID, text string) (string, error)

	// SaveMinutes writes the structured minutes document plus its rendered
	// Markdown and returns the JSON path.
	SaveMinutes(ctx context.Context, meetingID string, doc []byte, markdown string) (string, error)
}

// FSStore is the filesystem ArtifactStore.
type FSStore struct {
	root   string
	logger logging.Logger
}

// NewFSStore creates the store rooted at dir, creating the artifact
// subdirectories up front so later writes only fail on real I/O problems.
func NewFSStore(dir string, logger logging.Logger) (*FSStore, error) {
	for _, sub := range []string{"recordings", "transcripts", "minutes", "staging"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", sub, err)
		}
	}
	return &FSStore{root: dir, logger: logger}, nil
}

// StagingPath returns where a live recording should be captured before the
// pipeline persists it.
func (s *FSStore) StagingPath(meetingID string) string {
	return filepath.Join(s.root, "staging", meetingID+".wav")
}

// RecordingPath returns the durable path for a meeting's recording.
func (s *FSStore) RecordingPath(meetingID string) string {
	return filepath.Join(s.root, "recordings", meetingID+".wav")
}

// StoreRecording copies srcPath into recordings/ with an fsync before the
// final rename, then removes the source. A failed copy is a storage fault
// worth retrying with backoff; a missing or empty source is not.
func (s *FSStore) StoreRecording(ctx context.Context, meetingID, srcPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("reading recording: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("recording is empty: %s", srcPath)
	}

	dst := s.RecordingPath(meetingID)
	if err := s.copyFileSync(srcPath, dst); err != nil {
		return "", errors.NewPipelineError(errors.ErrTransientIO, "",
			fmt.Sprintf("storing recording: %v", err), err)
	}

	if err := os.Remove(srcPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("could not remove staged recording",
			logging.F("path", srcPath), logging.Err(err))
	}

	s.logger.Info("recording persisted",
		logging.F("meeting_id", meetingID),
		logging.F("path", dst),
		logging.F("bytes", info.Size()))
	return dst, nil
}

// SaveTranscript writes the transcript as UTF-8 text.
func (s *FSStore) SaveTranscript(ctx context.Context, meetingID, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, "transcripts", meetingID+".txt")
	if err := s.writeAtomic(path, []byte(text)); err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return path, nil
}

// SaveMinutes writes the JSON document and its Markdown rendering side by
// side. The JSON path is the canonical ref.
func (s *FSStore) SaveMinutes(ctx context.Context, meetingID string, doc []byte, markdown string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	jsonPath := filepath.Join(s.root, "minutes", meetingID+".json")
	if err := s.writeAtomic(jsonPath, doc); err != nil {
		return "", fmt.Errorf("writing minutes: %w", err)
	}
	mdPath := filepath.Join(s.root, "minutes", meetingID+".md")
	if err := s.writeAtomic(mdPath, []byte(markdown)); err != nil {
		return "", fmt.Errorf("writing minutes markdown: %w", err)
	}
	return jsonPath, nil
}

// writeAtomic writes data to path via temp-file-and-rename.
func (s *FSStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// copyFileSync copies src to dst through a temp file, syncing before the
// rename.
func (s *FSStore) copyFileSync(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copying recording: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing recording: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("finalizing recording: %w", err)
	}
	return nil
}
