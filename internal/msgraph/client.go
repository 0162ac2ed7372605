package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// ErrEventNotFound is returned when Graph reports that an event does not exist.
var ErrEventNotFound = errors.New("calendar event not found")

// Client is an authenticated Microsoft Graph API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Graph API client on top of ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource) *Client {
	return &Client{
		httpClient: oauth2.NewClient(ctx, ts),
		baseURL:    graphBaseURL,
	}
}

// NewClientWithHTTP creates a client that sends requests with hc to baseURL.
func NewClientWithHTTP(hc *http.Client, baseURL string) *Client {
	return &Client{httpClient: hc, baseURL: baseURL}
}

// DateTimeTimeZone is Graph's zoned wall-clock time.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// ItemBody is the body of a Graph calendar event.
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// CalendarEvent represents a Microsoft Graph calendar event.
type CalendarEvent struct {
	ID                         string           `json:"id,omitempty"`
	Subject                    string           `json:"subject"`
	Body                       *ItemBody        `json:"body,omitempty"`
	BodyPreview                string           `json:"bodyPreview,omitempty"`
	IsCancelled                bool             `json:"isCancelled,omitempty"`
	IsReminderOn               bool             `json:"isReminderOn"`
	ReminderMinutesBeforeStart int              `json:"reminderMinutesBeforeStart"`
	ShowAs                     string           `json:"showAs,omitempty"` // "free", "tentative", "busy", "oof", "workingElsewhere", "unknown"
	Categories                 []string         `json:"categories,omitempty"`
	Start                      DateTimeTimeZone `json:"start"`
	End                        DateTimeTimeZone `json:"end"`
}

// calendarViewResponse is the Graph API paged response for calendar events.
type calendarViewResponse struct {
	Value    []CalendarEvent `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("graph API request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// GetCalendarView fetches calendar events in [from, to) using the calendarView endpoint.
// timezone is an IANA timezone name (e.g. "Europe/Berlin"); pass "" for UTC.
func (c *Client) GetCalendarView(ctx context.Context, from, to time.Time, timezone string) ([]CalendarEvent, error) {
	startISO := from.UTC().Format(time.RFC3339)
	endISO := to.UTC().Format(time.RFC3339)

	endpoint := fmt.Sprintf("%s/me/calendarView?startDateTime=%s&endDateTime=%s&$top=100",
		c.baseURL,
		url.QueryEscape(startISO),
		url.QueryEscape(endISO),
	)

	var all []CalendarEvent
	for endpoint != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if timezone != "" {
			req.Header.Set("Prefer", fmt.Sprintf(`outlook.timezone="%s"`, timezone))
		}

		body, status, err := c.do(req)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("graph API error %d: %s", status, string(body))
		}

		var page calendarViewResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding graph response: %w", err)
		}

		all = append(all, page.Value...)
		endpoint = page.NextLink
	}
	return all, nil
}

// CreateEvent creates ev in the user's default calendar and returns the stored event.
func (c *Client) CreateEvent(ctx context.Context, ev CalendarEvent) (CalendarEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("encoding event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/me/events", bytes.NewReader(payload))
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return CalendarEvent{}, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return CalendarEvent{}, fmt.Errorf("graph API error %d: %s", status, string(body))
	}
	var created CalendarEvent
	if err := json.Unmarshal(body, &created); err != nil {
		return CalendarEvent{}, fmt.Errorf("decoding graph response: %w", err)
	}
	return created, nil
}

// DeleteEvent deletes the event with id. Returns ErrEventNotFound on 404.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/me/events/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	body, status, err := c.do(req)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("event %s: %w", id, ErrEventNotFound)
	default:
		return fmt.Errorf("graph API error %d: %s", status, string(body))
	}
}

// parseGraphTime parses a Graph API dateTime string in the given timezone.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set.
func parseGraphTime(dt, tz string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, dt); err == nil {
		return t, nil
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}
