package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/luminahq/lumina/pkg/logging"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// maxResults bounds one events.list page. The lookahead window is minutes
// wide, so a single page is always enough.
const maxResults = 10

// Client is a Google Calendar API v3 client scoped to the read-only
// events.list call the poller needs.
type Client struct {
	baseURL    string
	calendarID string
	tokens     TokenSource
	httpClient *http.Client
	logger     logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a calendar client for the given calendar ID.
func NewClient(calendarID string, tokens TokenSource, logger logging.Logger, opts ...Option) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		calendarID: calendarID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListMeetings returns meetings in [windowStart, windowEnd] that carry a
// joinable video link. Events without a link are filtered out.
func (c *Client) ListMeetings(ctx context.Context, windowStart, windowEnd time.Time) ([]Meeting, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting calendar token: %w", err)
	}

	q := url.Values{
		"timeMin":      {windowStart.UTC().Format(time.RFC3339)},
		"timeMax":      {windowEnd.UTC().Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {fmt.Sprint(maxResults)},
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s",
		c.baseURL, url.PathEscape(c.calendarID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling calendar API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar API error: HTTP %d", resp.StatusCode)
	}

	var list struct {
		Items []event `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("parsing calendar response: %w", err)
	}

	meetings := make([]Meeting, 0, len(list.Items))
	for _, ev := range list.Items {
		link := extractMeetLink(ev)
		if link == "" {
			continue
		}

		meeting := Meeting{
			ID:        ev.ID,
			Title:     ev.Summary,
			JoinLink:  link,
			StartTime: parseEventTime(ev.Start.DateTime, ev.Start.Date),
			EndTime:   parseEventTime(ev.End.DateTime, ev.End.Date),
		}
		if meeting.Title == "" {
			meeting.Title = "Untitled Meeting"
		}
		meetings = append(meetings, meeting)
	}

	c.logger.Debug("calendar window scanned",
		logging.F("events", len(list.Items)),
		logging.F("with_link", len(meetings)))

	return meetings, nil
}

// parseEventTime handles both timed events (dateTime) and all-day events
// (date only).
func parseEventTime(dateTime, date string) time.Time {
	if dateTime != "" {
		if t, err := time.Parse(time.RFC3339, dateTime); err == nil {
			return t
		}
	}
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			return t
		}
	}
	return time.Time{}
}
