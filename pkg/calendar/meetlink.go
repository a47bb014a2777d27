package calendar

import "regexp"

var meetLinkPattern = regexp.MustCompile(`https://meet\.google\.com/[a-z]{3}-[a-z]{4}-[a-z]{3}`)

// event mirrors the subset of the Calendar API event resource we consume.
type event struct {
	ID             string         `json:"id"`
	Summary        string         `json:"summary"`
	Description    string         `json:"description"`
	HangoutLink    string         `json:"hangoutLink"`
	Start          eventTime      `json:"start"`
	End            eventTime      `json:"end"`
	ConferenceData conferenceData `json:"conferenceData"`
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type conferenceData struct {
	EntryPoints []entryPoint `json:"entryPoints"`
}

type entryPoint struct {
	EntryPointType string `json:"entryPointType"`
	URI            string `json:"uri"`
}

// extractMeetLink finds the joinable video link for an event, checking in
// priority order: hangoutLink, conference entry points, then a Meet URL
// embedded in the description. Returns "" when the event has no link.
func extractMeetLink(ev event) string {
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}

	for _, entry := range ev.ConferenceData.EntryPoints {
		if entry.EntryPointType == "video" && entry.URI != "" {
			return entry.URI
		}
	}

	if match := meetLinkPattern.FindString(ev.Description); match != "" {
		return match
	}

	return ""
}
