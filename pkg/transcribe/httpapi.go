package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

// HTTPTranscriber posts the recording to a whisper.cpp server (or any
// endpoint speaking the same multipart /inference protocol) and reads the
// text from the JSON response.
type HTTPTranscriber struct {
	endpoint   string
	language   string
	httpClient *http.Client
	logger     logging.Logger
}

// NewHTTPTranscriber builds the HTTP-backend transcriber.
func NewHTTPTranscriber(endpoint, language string, logger logging.Logger) *HTTPTranscriber {
	if language == "" {
		language = "en"
	}
	return &HTTPTranscriber{
		endpoint: endpoint,
		language: language,
		// Transcription of an hour-long recording can take minutes.
		httpClient: &http.Client{Timeout: 15 * time.Minute},
		logger:     logger,
	}
}

// SetHTTPClient overrides the HTTP client. Used by tests.
func (t *HTTPTranscriber) SetHTTPClient(hc *http.Client) { t.httpClient = hc }

// Transcribe uploads the file and returns the trimmed transcript text.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"transcribe", "opening recording", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading recording: %w", err)
	}
	if err := mw.WriteField("language", t.language); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	t.logger.Info("transcribing recording",
		logging.F("backend", "http"),
		logging.F("audio", audioPath))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"transcribe", "calling transcription endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"transcribe", fmt.Sprintf("transcription endpoint returned HTTP %d", resp.StatusCode), nil)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"transcribe", "parsing transcription response", err)
	}

	text := strings.TrimSpace(result.Text)
	t.logger.Info("transcription complete",
		logging.F("chars", len(text)),
		logging.F("elapsed", time.Since(start).Truncate(time.Millisecond).String()))
	return text, nil
}
