package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes little-endian PCM16 mono samples as a WAV file at path,
// creating parent directories as needed.
func writeWAV(path string, pcm []byte, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating recording directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav file: %w", err)
	}
	defer f.Close()

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	enc := wav.NewEncoder(f, sampleRate, BitDepth, NumChannels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: NumChannels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}
