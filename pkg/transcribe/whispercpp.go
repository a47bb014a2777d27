package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

// commandRunner abstracts exec.Command so tests can fake the whisper binary.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

// WhisperCPP transcribes by invoking a local whisper.cpp binary and reading
// its stdout.
type WhisperCPP struct {
	binary    string
	modelPath string
	language  string
	runner    commandRunner
	logger    logging.Logger
}

// NewWhisperCPP builds the local-binary transcriber. Empty binary defaults
// to "whisper-cli" on PATH.
func NewWhisperCPP(binary, modelPath, language string, logger logging.Logger) *WhisperCPP {
	if binary == "" {
		binary = "whisper-cli"
	}
	if language == "" {
		language = "en"
	}
	return &WhisperCPP{
		binary:    binary,
		modelPath: modelPath,
		language:  language,
		runner:    execRunner{},
		logger:    logger,
	}
}

// Transcribe runs the binary with timestamps suppressed and returns the
// trimmed stdout text.
func (w *WhisperCPP) Transcribe(ctx context.Context, audioPath string) (string, error) {
	args := []string{
		"--file", audioPath,
		"--language", w.language,
		"--no-timestamps",
		"--no-prints",
	}
	if w.modelPath != "" {
		args = append(args, "--model", w.modelPath)
	}

	start := time.Now()
	w.logger.Info("transcribing recording",
		logging.F("backend", "whisper-cpp"),
		logging.F("audio", audioPath))

	out, err := w.runner.Run(ctx, w.binary, args...)
	if err != nil {
		return "", errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"transcribe", "running whisper", err)
	}

	text := strings.TrimSpace(string(out))
	w.logger.Info("transcription complete",
		logging.F("chars", len(text)),
		logging.F("elapsed", time.Since(start).Truncate(time.Millisecond).String()))
	return text, nil
}
