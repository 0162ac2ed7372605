package msgraph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Tiliavir/ministry-log/internal/reminder"
)

const (
	// Category marks the calendar events mlog creates.
	Category = "mlog"

	eventLength    = 15 * time.Minute
	pendingHorizon = 90 * 24 * time.Hour
	graphLayout    = "2006-01-02T15:04:05"
)

// Notifier delivers reminders as Outlook calendar events whose built-in
// reminder pops up at the event start. The event id is the handle.
type Notifier struct {
	client   *Client
	timezone string
	now      func() time.Time
}

var (
	_ reminder.Notifier = (*Notifier)(nil)
	_ reminder.Lister   = (*Notifier)(nil)
)

// NewNotifier returns a Notifier; timezone is the IANA name events are
// listed in ("" for UTC).
func NewNotifier(client *Client, timezone string) *Notifier {
	return &Notifier{client: client, timezone: timezone, now: time.Now}
}

// Schedule creates a reminder event starting at fireAt.
func (n *Notifier) Schedule(ctx context.Context, content reminder.Content, fireAt time.Time) (string, error) {
	start := fireAt.UTC()
	ev := CalendarEvent{
		Subject:                    content.Title,
		Body:                       &ItemBody{ContentType: "text", Content: content.Body},
		IsReminderOn:               true,
		ReminderMinutesBeforeStart: 0,
		ShowAs:                     "free",
		Categories:                 []string{Category},
		Start:                      DateTimeTimeZone{DateTime: start.Format(graphLayout), TimeZone: "UTC"},
		End:                        DateTimeTimeZone{DateTime: start.Add(eventLength).Format(graphLayout), TimeZone: "UTC"},
	}
	created, err := n.client.CreateEvent(ctx, ev)
	if err != nil {
		return "", fmt.Errorf("creating reminder event: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("graph returned an event without id")
	}
	return created.ID, nil
}

// Cancel deletes the reminder event. Events already gone count as cancelled.
func (n *Notifier) Cancel(ctx context.Context, handle string) error {
	if err := n.client.DeleteEvent(ctx, handle); err != nil && !errors.Is(err, ErrEventNotFound) {
		return err
	}
	return nil
}

// Pending lists upcoming mlog reminder events, soonest first.
func (n *Notifier) Pending(ctx context.Context) ([]reminder.Scheduled, error) {
	from := n.now()
	events, err := n.client.GetCalendarView(ctx, from, from.Add(pendingHorizon), n.timezone)
	if err != nil {
		return nil, err
	}
	var out []reminder.Scheduled
	for _, ev := range events {
		if ev.IsCancelled || !slices.Contains(ev.Categories, Category) {
			continue
		}
		at, err := parseGraphTime(ev.Start.DateTime, ev.Start.TimeZone)
		if err != nil {
			return nil, err
		}
		out = append(out, reminder.Scheduled{
			Handle: ev.ID,
			Title:  ev.Subject,
			Body:   ev.BodyPreview,
			FireAt: at,
		})
	}
	slices.SortStableFunc(out, func(a, b reminder.Scheduled) int {
		return a.FireAt.Compare(b.FireAt)
	})
	return out, nil
}
