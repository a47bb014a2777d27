package minutes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

func TestOllamaGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req["model"] != "llama3" {
			t.Errorf("model = %v", req["model"])
		}
		if req["stream"] != false {
			t.Error("expected stream: false")
		}
		prompt, _ := req["prompt"].(string)
		if !strings.Contains(prompt, "Design sync") || !strings.Contains(prompt, "we discussed the rollout") {
			t.Errorf("prompt missing title or transcript:\n%s", prompt)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{
			"response": "SUMMARY\nRollout discussed.\n\nKEY POINTS & DECISIONS\n- ship Friday\n\nACTION ITEMS\n- Alex to tag the release",
		})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3", logging.NewNopLogger())
	m, err := g.Generate(context.Background(), "Design sync", "we discussed the rollout")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if m.Summary != "Rollout discussed." {
		t.Errorf("summary = %q", m.Summary)
	}
	if len(m.KeyPoints) != 1 || m.KeyPoints[0] != "ship Friday" {
		t.Errorf("keyPoints = %v", m.KeyPoints)
	}
	if len(m.ActionItems) != 1 {
		t.Errorf("actions = %v", m.ActionItems)
	}
	if m.Model != "llama3" || m.Title != "Design sync" {
		t.Errorf("metadata: %+v", m)
	}
}

func TestOllamaGenerator_EmptyTranscript(t *testing.T) {
	g := NewOllamaGenerator("http://localhost:11434", "llama3", logging.NewNopLogger())
	_, err := g.Generate(context.Background(), "t", "   \n")
	if err == nil {
		t.Fatal("expected error for empty transcript")
	}
	if errors.CodeOf(err) != errors.ErrEmptyTranscript {
		t.Errorf("code = %s", errors.CodeOf(err))
	}
}

func TestOllamaGenerator_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3", logging.NewNopLogger())
	_, err := g.Generate(context.Background(), "t", "transcript")
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if errors.CodeOf(err) != errors.ErrCollaboratorFailure {
		t.Errorf("code = %s", errors.CodeOf(err))
	}
}

func TestOllamaGenerator_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "  "})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL, "llama3", logging.NewNopLogger())
	if _, err := g.Generate(context.Background(), "t", "transcript"); err == nil {
		t.Fatal("expected error for empty model response")
	}
}
