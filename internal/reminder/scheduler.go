// Package reminder keeps follow-up reminders consistent with the
// conversations they belong to.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/storage"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

const (
	// DayBefore is how long before the follow-up the first reminder fires.
	DayBefore = 24 * time.Hour
	// Imminent is how long before the follow-up the second reminder fires.
	Imminent = 15 * time.Minute
)

// Content is the rendered text of one reminder.
type Content struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

// Notifier schedules and cancels reminders on some delivery channel.
type Notifier interface {
	Schedule(ctx context.Context, content Content, fireAt time.Time) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// Scheduled is a pending reminder as a Notifier knows it.
type Scheduled struct {
	Handle         string    `json:"handle"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	FireAt         time.Time `json:"fire_at"`
}

// Lister is implemented by notifiers that can enumerate pending reminders.
type Lister interface {
	Pending(ctx context.Context) ([]Scheduled, error)
}

// PermissionChecker is implemented by notifiers that need the user's consent.
type PermissionChecker interface {
	Permitted(ctx context.Context) (bool, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Scheduler validates and saves conversations, keeping their reminders in sync.
type Scheduler struct {
	store    storage.ConversationStore
	notifier Notifier
	clock    Clock
	logger   *log.Logger
	messages *Messages
	policy   timecalc.Policy
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger for scheduling and cancel failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMessages sets the language of reminder and validation texts.
func WithMessages(m *Messages) Option {
	return func(s *Scheduler) { s.messages = m }
}

// WithPolicy sets the location follow-up times are shown in.
func WithPolicy(p timecalc.Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// New returns a Scheduler. A nil notifier disables reminders.
func New(store storage.ConversationStore, notifier Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		clock:    SystemClock,
		policy:   timecalc.Policy{Location: time.Local},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.messages == nil {
		s.messages = NewMessages("en")
	}
	return s
}

// Validate reports why c cannot be saved, or nil.
func (s *Scheduler) Validate(c model.Conversation) model.ValidationErrors {
	errs := model.ValidationErrors{}
	if c.Contact.ID == "" {
		errs["contact"] = s.messages.text(keyContactMissing)
	}
	if c.Date.IsZero() {
		errs["date"] = s.messages.text(keyDateMissing)
	}
	if c.NotAtHome && c.IsBibleStudy {
		errs["is_bible_study"] = s.messages.text(keyNotAtHomeStudy)
	}
	if c.FollowUp != nil && c.FollowUp.Date.IsZero() {
		errs["follow_up.date"] = s.messages.text(keyFollowUpDate)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit validates c, reconciles its reminders with the stored version and
// saves it. Validation problems block the save and come back as
// ValidationErrors; the error return is reserved for store failures.
// Reminder failures are logged and never block the save.
func (s *Scheduler) Submit(ctx context.Context, c model.Conversation, contactName string) (model.Conversation, model.ValidationErrors, error) {
	if verrs := s.Validate(c); verrs != nil {
		return c, verrs, nil
	}
	if c.ID == "" {
		c.ID = model.NewID()
	}

	var previous *model.Conversation
	stored, err := s.store.GetConversation(ctx, c.ID)
	switch {
	case err == nil:
		previous = &stored
	case errors.Is(err, storage.ErrNotFound):
	default:
		return c, nil, fmt.Errorf("loading conversation %s: %w", c.ID, err)
	}

	if c.FollowUp != nil {
		f := *c.FollowUp
		f.Notifications = nil
		c.FollowUp = &f
	}

	var carried []model.Notification
	if previous != nil {
		carried = previous.Handles()
		if len(carried) > 0 && remindersStale(*previous, c) {
			s.cancelAll(ctx, c.ID, carried)
			carried = nil
		}
	}

	var fresh []model.Notification
	if c.FollowUp != nil && c.FollowUp.NotifyMe {
		if len(carried) > 0 {
			c.FollowUp.Notifications = carried
		} else {
			fresh = s.schedule(ctx, c, contactName)
			c.FollowUp.Notifications = fresh
		}
	}

	if err := s.store.PutConversation(ctx, c); err != nil {
		// No stored record owns the new reminders.
		s.cancelAll(ctx, c.ID, fresh)
		return c, nil, fmt.Errorf("saving conversation %s: %w", c.ID, err)
	}
	return c, nil, nil
}

// Delete cancels every reminder of the conversation, then removes it.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("loading conversation %s: %w", id, err)
	}
	s.cancelAll(ctx, id, c.Handles())
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return nil
}

// Candidates returns the reminder fire times for a follow-up at due that are
// still in the future at now.
func Candidates(due, now time.Time) []time.Time {
	var out []time.Time
	for _, at := range []time.Time{due.Add(-DayBefore), due.Add(-Imminent)} {
		if at.After(now) {
			out = append(out, at)
		}
	}
	return out
}

// remindersStale reports whether the reminders scheduled for prev no longer
// describe next: the follow-up moved, changed topic, was dropped or silenced,
// or the conversation now belongs to another contact.
func remindersStale(prev, next model.Conversation) bool {
	p, n := prev.FollowUp, next.FollowUp
	if p == nil || n == nil || !n.NotifyMe {
		return true
	}
	if prev.Contact.ID != next.Contact.ID {
		return true
	}
	return !p.Date.Equal(n.Date) || p.Topic != n.Topic
}

func (s *Scheduler) permitted(ctx context.Context) bool {
	if s.notifier == nil {
		return false
	}
	pc, ok := s.notifier.(PermissionChecker)
	if !ok {
		return true
	}
	granted, err := pc.Permitted(ctx)
	if err != nil {
		s.logger.Warn("checking notification permission failed", "err", err)
		return false
	}
	return granted
}

func (s *Scheduler) schedule(ctx context.Context, c model.Conversation, contactName string) []model.Notification {
	if !s.permitted(ctx) {
		s.logger.Debug("notifications not permitted, skipping reminders", "conversation", c.ID)
		return nil
	}
	due := c.FollowUp.Date
	content := s.messages.Content(contactName, c.FollowUp.Topic, s.policy.In(due))
	content.ConversationID = c.ID

	var handles []model.Notification
	for _, at := range Candidates(due, s.clock.Now()) {
		handle, err := s.notifier.Schedule(ctx, content, at)
		if err != nil {
			s.logger.Warn("scheduling reminder failed", "conversation", c.ID, "fire_at", at, "err", err)
			continue
		}
		handles = append(handles, model.Notification{ID: handle, Date: at})
	}
	return handles
}

func (s *Scheduler) cancelAll(ctx context.Context, conversationID string, handles []model.Notification) {
	if s.notifier == nil {
		return
	}
	for _, h := range handles {
		if err := s.notifier.Cancel(ctx, h.ID); err != nil {
			s.logger.Warn("cancelling reminder failed", "conversation", conversationID, "handle", h.ID, "err", err)
		}
	}
}
