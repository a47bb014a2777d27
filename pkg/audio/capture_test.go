package audio

import (
	"testing"

	"github.com/luminahq/lumina/pkg/logging"
)

func TestCaptureRecorder_StopWithoutStart(t *testing.T) {
	r := NewCaptureRecorder(0, logging.NewNopLogger())

	artifact, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop on idle recorder: %v", err)
	}
	if !artifact.Empty() {
		t.Errorf("expected empty artifact, got %+v", artifact)
	}

	// A second Stop is equally harmless.
	if _, err := r.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNewCaptureRecorder_DefaultsSampleRate(t *testing.T) {
	r := NewCaptureRecorder(-1, logging.NewNopLogger())
	if r.sampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d, want %d", r.sampleRate, DefaultSampleRate)
	}
}
