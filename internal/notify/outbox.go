// Package notify is a local reminder channel: scheduled reminders are kept in
// a JSON outbox and handed to a delivery function once they fall due, for
// example from a cron job running "mlog reminders deliver".
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/ministry-log/internal/reminder"
	"github.com/Tiliavir/ministry-log/internal/storage"
)

type outboxFile struct {
	Pending []reminder.Scheduled `json:"pending"`
}

// Outbox implements reminder.Notifier on a JSON file.
type Outbox struct {
	path string
	mu   sync.Mutex
}

// NewOutbox returns an outbox stored at path.
func NewOutbox(path string) *Outbox {
	return &Outbox{path: path}
}

func (o *Outbox) load() (outboxFile, error) {
	f := outboxFile{Pending: []reminder.Scheduled{}}
	_, err := storage.ReadJSON(o.path, &f)
	return f, err
}

func (o *Outbox) save(f outboxFile) error {
	return storage.WriteJSON(o.path, f)
}

// Schedule queues content to fire at fireAt and returns its handle.
func (o *Outbox) Schedule(ctx context.Context, content reminder.Content, fireAt time.Time) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.load()
	if err != nil {
		return "", err
	}
	p := reminder.Scheduled{
		Handle:         uuid.NewString(),
		ConversationID: content.ConversationID,
		Title:          content.Title,
		Body:           content.Body,
		FireAt:         fireAt,
	}
	f.Pending = append(f.Pending, p)
	if err := o.save(f); err != nil {
		return "", err
	}
	return p.Handle, nil
}

// Cancel removes the reminder with handle. Unknown handles are ignored.
func (o *Outbox) Cancel(ctx context.Context, handle string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.load()
	if err != nil {
		return err
	}
	for i, p := range f.Pending {
		if p.Handle == handle {
			f.Pending = append(f.Pending[:i], f.Pending[i+1:]...)
			return o.save(f)
		}
	}
	return nil
}

// Pending lists every queued reminder, soonest first.
func (o *Outbox) Pending(ctx context.Context) ([]reminder.Scheduled, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.load()
	if err != nil {
		return nil, err
	}
	sortByFireTime(f.Pending)
	return f.Pending, nil
}

// Deliver hands every reminder due at now to send, soonest first, and removes
// the ones that were sent. It stops at the first send error.
func (o *Outbox) Deliver(ctx context.Context, now time.Time, send func(reminder.Scheduled) error) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.load()
	if err != nil {
		return 0, err
	}
	sortByFireTime(f.Pending)

	sent := 0
	var sendErr error
	kept := make([]reminder.Scheduled, 0, len(f.Pending))
	for _, p := range f.Pending {
		if sendErr != nil || p.FireAt.After(now) || ctx.Err() != nil {
			kept = append(kept, p)
			continue
		}
		if err := send(p); err != nil {
			sendErr = fmt.Errorf("delivering reminder %s: %w", p.Handle, err)
			kept = append(kept, p)
			continue
		}
		sent++
	}
	if sent > 0 {
		f.Pending = kept
		if err := o.save(f); err != nil {
			return sent, err
		}
	}
	return sent, sendErr
}

func sortByFireTime(ps []reminder.Scheduled) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].FireAt.Before(ps[j].FireAt)
	})
}
