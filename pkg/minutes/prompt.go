package minutes

import (
	"fmt"
	"strings"
)

// Section headers the model is asked to produce and the parser looks for.
const (
	sectionSummary     = "SUMMARY"
	sectionKeyPoints   = "KEY POINTS & DECISIONS"
	sectionActionItems = "ACTION ITEMS"
)

const promptTemplate = `You are an assistant that writes concise meeting minutes.

Based on the following meeting transcript, produce minutes with exactly these three sections, using these exact headers:

SUMMARY
A short paragraph summarizing the meeting.

KEY POINTS & DECISIONS
A bulleted list of the main points discussed and decisions made.

ACTION ITEMS
A bulleted list of action items with owners where mentioned. Write "None" if there are no action items.

Meeting title: %s

Transcript:
%s`

// buildPrompt fills the minutes prompt for one transcript.
func buildPrompt(title, transcript string) string {
	if title == "" {
		title = "Untitled Meeting"
	}
	return fmt.Sprintf(promptTemplate, title, strings.TrimSpace(transcript))
}
