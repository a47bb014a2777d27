// Package transcribe turns a recording into text through a local
// speech-to-text engine. Two backends are supported: shelling out to a
// whisper.cpp binary, and posting to a whisper.cpp server over HTTP.
package transcribe

import (
	"context"
	"fmt"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/logging"
)

// Transcriber converts the audio file at path into plain text. An empty
// string with a nil error means the engine found no speech.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// New builds the transcriber selected by configuration.
func New(cfg config.TranscribeConfig, logger logging.Logger) (Transcriber, error) {
	switch cfg.Backend {
	case "", config.TranscribeBackendWhisperCPP:
		return NewWhisperCPP(cfg.WhisperPath, cfg.ModelPath, cfg.Language, logger), nil
	case config.TranscribeBackendHTTP:
		return NewHTTPTranscriber(cfg.Endpoint, cfg.Language, logger), nil
	default:
		return nil, fmt.Errorf("unknown transcribe backend: %q", cfg.Backend)
	}
}
