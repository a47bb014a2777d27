package minutes

import (
	"strings"
	"testing"
	"time"
)

func TestParseResponse_WellFormed(t *testing.T) {
	summary, keyPoints, actions := parseResponse(`SUMMARY
The team reviewed Q3 progress and agreed the launch stays on track.

KEY POINTS & DECISIONS
- Launch date confirmed for October 15
- Budget increase approved

ACTION ITEMS
- Dana to draft the announcement
- Sam to update the roadmap`)

	if !strings.Contains(summary, "Q3 progress") {
		t.Errorf("summary = %q", summary)
	}
	if len(keyPoints) != 2 || keyPoints[0] != "Launch date confirmed for October 15" {
		t.Errorf("keyPoints = %v", keyPoints)
	}
	if len(actions) != 2 || actions[1] != "Sam to update the roadmap" {
		t.Errorf("actions = %v", actions)
	}
}

func TestParseResponse_DecoratedHeaders(t *testing.T) {
	summary, keyPoints, actions := parseResponse(`## Summary
Short recap.

**Key Points**
* first point
1. second point

### Action Items:
- do the thing`)

	if summary != "Short recap." {
		t.Errorf("summary = %q", summary)
	}
	if len(keyPoints) != 2 {
		t.Errorf("keyPoints = %v", keyPoints)
	}
	if len(actions) != 1 || actions[0] != "do the thing" {
		t.Errorf("actions = %v", actions)
	}
}

func TestParseResponse_NoneActionItems(t *testing.T) {
	_, _, actions := parseResponse(`SUMMARY
recap

ACTION ITEMS
None`)
	if len(actions) != 0 {
		t.Errorf("expected no action items, got %v", actions)
	}
}

func TestParseResponse_NoHeaders(t *testing.T) {
	raw := "The model ignored the template and wrote a paragraph instead."
	summary, keyPoints, actions := parseResponse(raw)
	if summary != raw {
		t.Errorf("summary = %q", summary)
	}
	if keyPoints != nil || actions != nil {
		t.Errorf("expected nil lists, got %v / %v", keyPoints, actions)
	}
}

func TestStripBullet(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"- item", "item"},
		{"* item", "item"},
		{"• item", "item"},
		{"1. numbered", "numbered"},
		{"2) numbered", "numbered"},
		{"no bullet", "no bullet"},
	}
	for _, tt := range tests {
		if got := stripBullet(tt.in); got != tt.want {
			t.Errorf("stripBullet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinutes_Markdown(t *testing.T) {
	m := &Minutes{
		Title:       "Weekly sync",
		GeneratedAt: time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC),
		Model:       "llama3",
		Summary:     "Recap.",
		KeyPoints:   []string{"point one"},
	}
	md := m.Markdown()

	for _, want := range []string{
		"# Meeting Minutes: Weekly sync",
		"## Summary",
		"Recap.",
		"- point one",
		"## Action Items",
		"_None._",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
