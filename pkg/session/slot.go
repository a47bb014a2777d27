package session

import (
	"sync"

	"github.com/luminahq/lumina/pkg/errors"
)

// Slot enforces the single-active-session rule: at most one browser and one
// recorder exist at a time. Acquire is an atomic check-and-set; a meeting
// that arrives while the slot is held is dropped, never queued. The slot
// covers only the browser-and-recording phase, so post-processing of a
// finished meeting may overlap the next session.
type Slot struct {
	mu        sync.Mutex
	active    bool
	meetingID string
}

// Acquire claims the slot for a meeting. Returns ErrSessionActive when it
// is already held.
func (s *Slot) Acquire(meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return errors.ErrSessionActive
	}
	s.active = true
	s.meetingID = meetingID
	return nil
}

// Release frees the slot. Releasing an idle slot is a no-op.
func (s *Slot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.meetingID = ""
}

// Active reports whether the slot is held and by which meeting.
func (s *Slot) Active() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.meetingID
}
