package session

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateNavigating, "navigating"},
		{StatePreJoinMediaSetup, "pre_join_media_setup"},
		{StateAwaitingAdmission, "awaiting_admission"},
		{StateInMeeting, "in_meeting"},
		{StateEnded, "ended"},
		{StateJoinFailed, "join_failed"},
		{State(99), "state(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateNavigating, StatePreJoinMediaSetup, StateAwaitingAdmission, StateInMeeting} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []State{StateEnded, StateJoinFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateIdle, StateNavigating},
		{StateNavigating, StatePreJoinMediaSetup},
		{StateNavigating, StateJoinFailed},
		{StatePreJoinMediaSetup, StateAwaitingAdmission},
		{StatePreJoinMediaSetup, StateJoinFailed},
		{StateAwaitingAdmission, StateInMeeting},
		{StateAwaitingAdmission, StateJoinFailed},
		{StateInMeeting, StateEnded},
	}
	for _, tt := range allowed {
		if !canTransition(tt.from, tt.to) {
			t.Errorf("%s -> %s should be allowed", tt.from, tt.to)
		}
	}

	// No transition re-enters an earlier state, and terminal states have no
	// way out.
	denied := []struct{ from, to State }{
		{StateNavigating, StateIdle},
		{StateInMeeting, StateAwaitingAdmission},
		{StateInMeeting, StateJoinFailed},
		{StateEnded, StateInMeeting},
		{StateEnded, StateNavigating},
		{StateJoinFailed, StateNavigating},
		{StateIdle, StateInMeeting},
	}
	for _, tt := range denied {
		if canTransition(tt.from, tt.to) {
			t.Errorf("%s -> %s should be denied", tt.from, tt.to)
		}
	}
}
