// Package minutes turns a meeting transcript into structured minutes using
// a local LLM served by Ollama. The model's free-form response is parsed
// into summary, key points, and action items, tolerating the formatting
// drift typical of LLM output.
package minutes

import (
	"context"
	"time"
)

// Minutes is the structured output of minutes generation.
type Minutes struct {
	MeetingID   string    `json:"meeting_id"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Model       string    `json:"model"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"key_points"`
	ActionItems []string  `json:"action_items"`
}

// Generator produces minutes from a transcript.
type Generator interface {
	Generate(ctx context.Context, title, transcript string) (*Minutes, error)
}
