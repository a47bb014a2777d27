package session

import "github.com/luminahq/lumina/pkg/browser"

// inMeetingSelector matches a DOM node that exists only while the call UI
// is active. Its presence is the single source of truth for "we are in the
// meeting": it confirms admission and its disappearance means the meeting
// ended or we were removed.
const inMeetingSelector = `div[jscontroller="kAPMuc"]`

// joinCandidates locates the join button on the pre-join screen, most
// specific first. The jsname survives UI rollouts better than text, but the
// text fallbacks cover it going stale.
var joinCandidates = []browser.Candidate{
	browser.Css(`button[jsname="Qx7uuf"]`),
	browser.Text("Join now"),
	browser.Text("Ask to join"),
}

// micOffCandidates and camOffCandidates locate the pre-join mute toggles.
// The aria-label is only present while the device is ON, so a miss means
// it is already muted.
var micOffCandidates = []browser.Candidate{
	browser.Aria("Turn off microphone"),
}

var camOffCandidates = []browser.Candidate{
	browser.Aria("Turn off camera"),
}
