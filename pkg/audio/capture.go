package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/luminahq/lumina/pkg/logging"
)

// CaptureRecorder records from the default system input device through
// miniaudio. Frames arrive on the backend's callback goroutine and are
// appended to an in-memory PCM buffer; Stop drains the buffer to a WAV file.
type CaptureRecorder struct {
	sampleRate uint32
	logger     logging.Logger

	mu        sync.Mutex
	recording bool
	path      string
	started   time.Time
	pcm       []byte

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
}

// NewCaptureRecorder builds a recorder at the given sample rate. Zero means
// DefaultSampleRate.
func NewCaptureRecorder(sampleRate int, logger logging.Logger) *CaptureRecorder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &CaptureRecorder{
		sampleRate: uint32(sampleRate),
		logger:     logger,
	}
}

// Start opens the default capture device and begins buffering frames.
func (r *CaptureRecorder) Start(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("recorder already started")
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("initializing audio backend: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = NumChannels
	cfg.SampleRate = r.sampleRate
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) {
			r.mu.Lock()
			if r.recording {
				r.pcm = append(r.pcm, in...)
			}
			r.mu.Unlock()
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, cfg, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("opening capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("starting capture device: %w", err)
	}

	r.recording = true
	r.path = path
	r.started = time.Now()
	r.pcm = nil
	r.malgoCtx = malgoCtx
	r.device = device

	r.logger.Info("recording started",
		logging.F("path", path),
		logging.F("sample_rate", int(r.sampleRate)))
	return nil
}

// Stop closes the device and writes the buffered PCM to the WAV file given
// at Start. Stopping an idle recorder is a no-op returning an empty
// Artifact.
func (r *CaptureRecorder) Stop() (Artifact, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Artifact{}, nil
	}
	r.recording = false
	pcm := r.pcm
	path := r.path
	started := r.started
	device := r.device
	malgoCtx := r.malgoCtx
	r.pcm = nil
	r.device = nil
	r.malgoCtx = nil
	r.mu.Unlock()

	device.Uninit()
	_ = malgoCtx.Uninit()
	malgoCtx.Free()

	if len(pcm) == 0 {
		r.logger.Warn("recording captured no audio, skipping file write",
			logging.F("path", path))
		return Artifact{}, nil
	}

	if err := writeWAV(path, pcm, int(r.sampleRate)); err != nil {
		return Artifact{}, fmt.Errorf("writing recording: %w", err)
	}

	artifact := Artifact{
		Path:       path,
		Duration:   time.Since(started),
		Bytes:      int64(len(pcm)),
		SampleRate: int(r.sampleRate),
		Channels:   NumChannels,
	}
	r.logger.Info("recording stopped",
		logging.F("path", path),
		logging.F("duration", artifact.Duration.Truncate(time.Second).String()),
		logging.F("bytes", artifact.Bytes))
	return artifact, nil
}
