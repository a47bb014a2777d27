package session

import "fmt"

// State is the lifecycle state of a meeting session. Transitions are
// strictly forward: a session never re-enters an earlier state.
type State int

const (
	// StateIdle is the initial state before navigation begins.
	StateIdle State = iota
	// StateNavigating covers loading the meeting URL.
	StateNavigating
	// StatePreJoinMediaSetup covers muting mic and camera on the pre-join
	// screen and clicking join.
	StatePreJoinMediaSetup
	// StateAwaitingAdmission covers waiting for the host to admit us.
	StateAwaitingAdmission
	// StateInMeeting covers active participation and recording.
	StateInMeeting
	// StateEnded is the terminal state of a session that reached the
	// meeting.
	StateEnded
	// StateJoinFailed is the terminal state of a session that never reached
	// the meeting.
	StateJoinFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigating:
		return "navigating"
	case StatePreJoinMediaSetup:
		return "pre_join_media_setup"
	case StateAwaitingAdmission:
		return "awaiting_admission"
	case StateInMeeting:
		return "in_meeting"
	case StateEnded:
		return "ended"
	case StateJoinFailed:
		return "join_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state is an end state.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateJoinFailed
}

// validNext lists the allowed transitions out of each state.
var validNext = map[State][]State{
	StateIdle:              {StateNavigating},
	StateNavigating:        {StatePreJoinMediaSetup, StateJoinFailed},
	StatePreJoinMediaSetup: {StateAwaitingAdmission, StateJoinFailed},
	StateAwaitingAdmission: {StateInMeeting, StateJoinFailed},
	StateInMeeting:         {StateEnded},
}

// canTransition reports whether from -> to is an allowed transition.
func canTransition(from, to State) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}
