package minutes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

// OllamaGenerator generates minutes through a local Ollama server's
// /api/generate endpoint with streaming disabled.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     logging.Logger
	now        func() time.Time
}

// NewOllamaGenerator builds a generator for the given server and model.
func NewOllamaGenerator(baseURL, model string, logger logging.Logger) *OllamaGenerator {
	return &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// Local LLM generation over a long transcript is slow.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     logger,
		now:        time.Now,
	}
}

// SetHTTPClient overrides the HTTP client. Used by tests.
func (g *OllamaGenerator) SetHTTPClient(hc *http.Client) { g.httpClient = hc }

// Generate prompts the model with the transcript and parses the response
// into structured minutes.
func (g *OllamaGenerator) Generate(ctx context.Context, title, transcript string) (*Minutes, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.NewPipelineError(errors.ErrEmptyTranscript, "minutes",
			"no transcript to summarize", nil)
	}

	reqBody, err := json.Marshal(map[string]any{
		"model":  g.model,
		"prompt": buildPrompt(title, transcript),
		"stream": false,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := g.now()
	g.logger.Info("generating minutes",
		logging.F("model", g.model),
		logging.F("transcript_chars", len(transcript)))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"minutes", "calling ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"minutes", fmt.Sprintf("ollama returned HTTP %d", resp.StatusCode), nil)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"minutes", "parsing ollama response", err)
	}
	if strings.TrimSpace(result.Response) == "" {
		return nil, errors.NewPipelineError(errors.ErrCollaboratorFailure,
			"minutes", "model returned an empty response", nil)
	}

	summary, keyPoints, actionItems := parseResponse(result.Response)
	m := &Minutes{
		Title:       title,
		GeneratedAt: g.now(),
		Model:       g.model,
		Summary:     summary,
		KeyPoints:   keyPoints,
		ActionItems: actionItems,
	}

	g.logger.Info("minutes generated",
		logging.F("key_points", len(m.KeyPoints)),
		logging.F("action_items", len(m.ActionItems)),
		logging.F("elapsed", time.Since(start).Truncate(time.Millisecond).String()))
	return m, nil
}
