// Package audio captures meeting audio from the system input device and
// writes it to a WAV artifact when the session ends. Capture runs on its own
// goroutine inside the audio backend; Start and Stop bracket the session's
// in-meeting phase.
package audio

import (
	"context"
	"time"
)

// Recording parameters. Speech-to-text models are trained on 16 kHz mono,
// so there is no value in capturing at a higher rate.
const (
	DefaultSampleRate = 16000
	NumChannels       = 1
	BitDepth          = 16
)

// Artifact describes a finished recording on disk. A zero-value Artifact
// (empty Path) means the session captured no audio and no file was written.
type Artifact struct {
	Path       string
	Duration   time.Duration
	Bytes      int64
	SampleRate int
	Channels   int
}

// Empty reports whether the recording captured nothing.
func (a Artifact) Empty() bool {
	return a.Path == "" || a.Bytes == 0
}

// Recorder captures audio between Start and Stop. Implementations must
// tolerate Stop without a prior Start (returning an empty Artifact) and
// reject a second Start while recording.
type Recorder interface {
	// Start begins capturing to an in-memory buffer that will be written to
	// path on Stop.
	Start(ctx context.Context, path string) error

	// Stop ends capture and writes the WAV file. When no frames were
	// captured it writes nothing and returns an empty Artifact with a nil
	// error.
	Stop() (Artifact, error)
}
