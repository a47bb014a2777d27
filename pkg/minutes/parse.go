package minutes

import (
	"fmt"
	"strings"
)

// parseResponse splits the model output into the three requested sections.
// Headers are matched case-insensitively and with common decoration stripped
// ("## SUMMARY", "**Summary:**", ...). When no header is found at all, the
// whole response becomes the summary so imperfect model output still yields
// usable minutes.
func parseResponse(text string) (summary string, keyPoints, actionItems []string) {
	const (
		inNone = iota
		inSummary
		inKeyPoints
		inActions
	)

	section := inNone
	var summaryLines []string
	sawHeader := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch classifyHeader(line) {
		case sectionSummary:
			section = inSummary
			sawHeader = true
			continue
		case sectionKeyPoints:
			section = inKeyPoints
			sawHeader = true
			continue
		case sectionActionItems:
			section = inActions
			sawHeader = true
			continue
		}

		if line == "" {
			continue
		}

		switch section {
		case inSummary:
			summaryLines = append(summaryLines, line)
		case inKeyPoints:
			if item := stripBullet(line); item != "" {
				keyPoints = append(keyPoints, item)
			}
		case inActions:
			item := stripBullet(line)
			if item == "" || strings.EqualFold(item, "none") {
				continue
			}
			actionItems = append(actionItems, item)
		}
	}

	if !sawHeader {
		return strings.TrimSpace(text), nil, nil
	}
	return strings.Join(summaryLines, " "), keyPoints, actionItems
}

// classifyHeader returns the canonical section name when the line is one of
// the three headers, or "".
func classifyHeader(line string) string {
	normalized := strings.ToUpper(strings.Trim(line, "#* \t:"))
	switch {
	case normalized == sectionSummary:
		return sectionSummary
	case normalized == sectionKeyPoints,
		normalized == "KEY POINTS AND DECISIONS",
		normalized == "KEY POINTS":
		return sectionKeyPoints
	case normalized == sectionActionItems:
		return sectionActionItems
	}
	return ""
}

// stripBullet removes list markers ("-", "*", "1.", "•") from a line.
func stripBullet(line string) string {
	s := strings.TrimLeft(line, "-*• \t")
	// Numbered lists: "1. item" / "2) item".
	if len(s) == len(line) {
		for i := 0; i < len(s); i++ {
			if s[i] >= '0' && s[i] <= '9' {
				continue
			}
			if s[i] == '.' || s[i] == ')' {
				s = strings.TrimSpace(s[i+1:])
			}
			break
		}
	}
	return strings.TrimSpace(s)
}

// Markdown renders the minutes as a readable document for the notification
// email and the .md artifact.
func (m *Minutes) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Meeting Minutes: %s\n\n", m.Title)
	fmt.Fprintf(&sb, "_Generated %s by %s_\n\n", m.GeneratedAt.Format("2006-01-02 15:04 MST"), m.Model)

	sb.WriteString("## Summary\n\n")
	sb.WriteString(m.Summary)
	sb.WriteString("\n\n## Key Points & Decisions\n\n")
	if len(m.KeyPoints) == 0 {
		sb.WriteString("_None recorded._\n")
	}
	for _, p := range m.KeyPoints {
		fmt.Fprintf(&sb, "- %s\n", p)
	}

	sb.WriteString("\n## Action Items\n\n")
	if len(m.ActionItems) == 0 {
		sb.WriteString("_None._\n")
	}
	for _, a := range m.ActionItems {
		fmt.Fprintf(&sb, "- %s\n", a)
	}
	return sb.String()
}
