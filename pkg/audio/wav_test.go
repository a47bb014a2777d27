package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWriteWAV_RoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	path := filepath.Join(t.TempDir(), "nested", "out.wav")
	if err := writeWAV(path, pcm, DefaultSampleRate); err != nil {
		t.Fatalf("writeWAV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening wav: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding wav: %v", err)
	}

	if dec.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d, want %d", dec.SampleRate, DefaultSampleRate)
	}
	if dec.NumChans != NumChannels {
		t.Errorf("channels = %d, want %d", dec.NumChans, NumChannels)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, want := range samples {
		if buf.Data[i] != int(want) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], want)
		}
	}
}

func TestArtifact_Empty(t *testing.T) {
	if !(Artifact{}).Empty() {
		t.Error("zero artifact must be empty")
	}
	if !(Artifact{Path: "/x.wav"}).Empty() {
		t.Error("artifact with no bytes must be empty")
	}
	if (Artifact{Path: "/x.wav", Bytes: 100}).Empty() {
		t.Error("artifact with path and bytes is not empty")
	}
}
