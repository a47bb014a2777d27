// Package calendar reads upcoming meetings with video links from the
// operator's Google Calendar. It is a read-only collaborator: the poller asks
// for meetings in a window and receives immutable descriptors.
package calendar

import (
	"context"
	"time"
)

// Meeting describes one calendar event carrying a joinable video link.
type Meeting struct {
	ID        string
	Title     string
	JoinLink  string
	StartTime time.Time
	EndTime   time.Time
}

// Service lists meetings with video links in a time window. Zero results is
// a normal outcome, not an error.
type Service interface {
	ListMeetings(ctx context.Context, windowStart, windowEnd time.Time) ([]Meeting, error)
}
