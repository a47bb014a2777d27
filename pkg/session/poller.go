package session

import (
	"context"
	"sync"
	"time"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/calendar"
	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
	"github.com/luminahq/lumina/pkg/observability"
)

// Poller queries the calendar on a fixed interval and starts a session for
// each meeting entering the lookahead window. Sessions run on their own
// goroutine, so the calendar keeps being polled while a meeting is attended.
// A meeting ID is handled at most once per daemon lifetime; meetings that
// surface while a session is active are dropped, not queued, so they can be
// retried on a later poll if they are still within the window.
type Poller struct {
	cfg          config.CalendarConfig
	service      calendar.Service
	orchestrator *Orchestrator
	metrics      *observability.SessionMetrics
	logger       logging.Logger

	mu      sync.Mutex
	handled map[string]time.Time

	// wg tracks in-flight session goroutines so Run can drain them.
	wg sync.WaitGroup

	now func() time.Time
}

// NewPoller builds a poller over the calendar service.
func NewPoller(
	cfg config.CalendarConfig,
	service calendar.Service,
	orchestrator *Orchestrator,
	metrics *observability.SessionMetrics,
	logger logging.Logger,
) *Poller {
	return &Poller{
		cfg:          cfg,
		service:      service,
		orchestrator: orchestrator,
		metrics:      metrics,
		logger:       logger,
		handled:      make(map[string]time.Time),
		now:          time.Now,
	}
}

// Run polls until ctx is cancelled. It polls once immediately, then on
// every tick. Cancellation propagates to any active session through the
// shared ctx; Run waits for that session to finish before returning.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("calendar poller started",
		logging.F("interval", p.cfg.PollInterval.String()),
		logging.F("lookahead", p.cfg.Lookahead.String()))

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("calendar poller stopping")
			p.wg.Wait()
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll fetches the window and starts a session for the first unhandled
// meeting. The session is dispatched on its own goroutine so later ticks
// keep listing the window; the slot serializes sessions either way.
func (p *Poller) poll(ctx context.Context) {
	windowStart := p.now()
	meetings, err := p.service.ListMeetings(ctx, windowStart, windowStart.Add(p.cfg.Lookahead))
	if err != nil {
		p.metrics.RecordPoll("error")
		p.logger.Error("calendar poll failed", logging.Err(err))
		return
	}
	p.metrics.RecordPoll("ok")
	p.pruneHandled()

	for _, meeting := range meetings {
		if p.isHandled(meeting.ID) {
			continue
		}
		if active, meetingID := p.orchestrator.Slot().Active(); active {
			p.metrics.RecordPoll("dropped")
			p.logger.Warn("meeting due but session active, dropping for now",
				logging.F("due_meeting", meeting.ID),
				logging.F("active_meeting", meetingID))
			return
		}

		p.markHandled(meeting)
		p.logger.Info("meeting due, starting session",
			logging.F("meeting_id", meeting.ID),
			logging.F("title", meeting.Title),
			logging.F("start", meeting.StartTime.Format(time.RFC3339)))

		p.wg.Add(1)
		go func(m calendar.Meeting) {
			defer p.wg.Done()
			_, err := p.orchestrator.HandleMeeting(ctx, m)
			switch {
			case err == nil:
			case errors.IsSessionActive(err):
				// Lost the slot between the check and the acquire. Unmark so
				// a later poll can retry while the meeting is in the window.
				p.unmarkHandled(m.ID)
				p.metrics.RecordPoll("dropped")
				p.logger.Warn("meeting due but session active, dropping for now",
					logging.F("due_meeting", m.ID))
			default:
				p.logger.Error("meeting session failed",
					logging.F("meeting_id", m.ID), logging.Err(err))
			}
		}(meeting)
		return
	}
}

func (p *Poller) isHandled(meetingID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.handled[meetingID]
	return ok
}

func (p *Poller) markHandled(meeting calendar.Meeting) {
	p.mu.Lock()
	defer p.mu.Unlock()
	expiry := meeting.EndTime
	if expiry.IsZero() {
		expiry = p.now().Add(24 * time.Hour)
	}
	p.handled[meeting.ID] = expiry
}

func (p *Poller) unmarkHandled(meetingID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handled, meetingID)
}

// pruneHandled drops entries whose meetings ended over an hour ago, keeping
// the set bounded in a long-running daemon.
func (p *Poller) pruneHandled() {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-time.Hour)
	for id, expiry := range p.handled {
		if expiry.Before(cutoff) {
			delete(p.handled, id)
		}
	}
}
