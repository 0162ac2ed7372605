// Package app is the surface the CLI drives: it loads records from the
// configured store and runs the aggregation, engagement and reminder logic
// over them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/ministry-log/internal/engagement"
	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/reminder"
	"github.com/Tiliavir/ministry-log/internal/report"
	"github.com/Tiliavir/ministry-log/internal/storage"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

var (
	// ErrListingUnsupported is returned when the notifier cannot enumerate reminders.
	ErrListingUnsupported = errors.New("the configured notification backend cannot list reminders")
	// ErrDeliveryUnsupported is returned when reminders are not delivered locally.
	ErrDeliveryUnsupported = errors.New("the configured notification backend delivers reminders itself")
	// ErrNotificationsDisabled is returned by reminder commands without a notifier.
	ErrNotificationsDisabled = errors.New("notifications are disabled")
)

// Deliverer is implemented by notifiers whose reminders mlog delivers itself.
type Deliverer interface {
	Deliver(ctx context.Context, now time.Time, send func(reminder.Scheduled) error) (int, error)
}

// Options configures a Service.
type Options struct {
	Policy       timecalc.Policy
	Clock        reminder.Clock
	Logger       *log.Logger
	Messages     *reminder.Messages
	GoalHours    int
	UpcomingDays int
	// Closers are released by Close after the store.
	Closers []io.Closer
}

// Service wires the stores, the reminder scheduler and the projections.
type Service struct {
	store        storage.Provider
	notifier     reminder.Notifier
	scheduler    *reminder.Scheduler
	policy       timecalc.Policy
	clock        reminder.Clock
	logger       *log.Logger
	goalHours    int
	upcomingDays int
	closers      []io.Closer
}

// New returns a Service on store. A nil notifier disables reminders.
func New(store storage.Provider, notifier reminder.Notifier, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = reminder.SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Messages == nil {
		opts.Messages = reminder.NewMessages("en")
	}
	if opts.UpcomingDays <= 0 {
		opts.UpcomingDays = 1
	}
	return &Service{
		store:    store,
		notifier: notifier,
		scheduler: reminder.New(store, notifier,
			reminder.WithClock(opts.Clock),
			reminder.WithLogger(opts.Logger.WithPrefix("reminder")),
			reminder.WithMessages(opts.Messages),
			reminder.WithPolicy(opts.Policy),
		),
		policy:       opts.Policy,
		clock:        opts.Clock,
		logger:       opts.Logger,
		goalHours:    opts.GoalHours,
		upcomingDays: opts.UpcomingDays,
		closers:      opts.Closers,
	}
}

// Close releases the store and any notifier connection.
func (s *Service) Close() error {
	errs := []error{s.store.Close()}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Policy returns the month boundary policy in use.
func (s *Service) Policy() timecalc.Policy { return s.policy }

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.clock.Now() }

// GoalHours returns the configured monthly goal.
func (s *Service) GoalHours() int { return s.goalHours }

// UpcomingDays returns the configured follow-up window.
func (s *Service) UpcomingDays() int { return s.upcomingDays }

// ComputeMonthSummary aggregates the stored reports of one month.
func (s *Service) ComputeMonthSummary(ctx context.Context, month time.Month, year int) (report.MonthSummary, error) {
	reports, err := s.store.ListServiceReports(ctx)
	if err != nil {
		return report.MonthSummary{}, fmt.Errorf("loading service reports: %w", err)
	}
	return report.ComputeMonthSummary(reports, month, year, s.policy), nil
}

// ComputeServiceYear aggregates the service year ending in August of year n.
func (s *Service) ComputeServiceYear(ctx context.Context, n int) (report.ServiceYearSummary, error) {
	reports, err := s.store.ListServiceReports(ctx)
	if err != nil {
		return report.ServiceYearSummary{}, fmt.Errorf("loading service reports: %w", err)
	}
	return report.ComputeServiceYearSummary(reports, n, s.policy), nil
}

// ServiceReportsForMonth returns the month's reports, oldest first.
func (s *Service) ServiceReportsForMonth(ctx context.Context, month time.Month, year int) ([]model.ServiceReport, error) {
	reports, err := s.store.ListServiceReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading service reports: %w", err)
	}
	return report.ReportsForMonth(reports, month, year, s.policy), nil
}

// GetServiceReport returns the report with id.
func (s *Service) GetServiceReport(ctx context.Context, id string) (model.ServiceReport, error) {
	return s.store.GetServiceReport(ctx, id)
}

// SaveServiceReport validates and stores r, assigning an id to new reports.
func (s *Service) SaveServiceReport(ctx context.Context, r model.ServiceReport) (model.ServiceReport, model.ValidationErrors, error) {
	if verrs := r.Validate(); verrs != nil {
		return r, verrs, nil
	}
	if r.ID == "" {
		r.ID = model.NewID()
	}
	r.Tag = r.NormalizedTag()
	if err := s.store.PutServiceReport(ctx, r); err != nil {
		return r, nil, fmt.Errorf("saving service report: %w", err)
	}
	return r, nil, nil
}

// DeleteServiceReport removes the report with id.
func (s *Service) DeleteServiceReport(ctx context.Context, id string) error {
	return s.store.DeleteServiceReport(ctx, id)
}

// ComputeContactEngagement reports the study status of a contact relative
// to referenceMonth. Unknown contacts yield the zero value.
func (s *Service) ComputeContactEngagement(ctx context.Context, contactID string, referenceMonth time.Time) (engagement.ContactEngagement, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return engagement.ContactEngagement{}, fmt.Errorf("loading conversations: %w", err)
	}
	return engagement.ComputeContactEngagement(convs, contactID, referenceMonth, s.policy), nil
}

// AddContact stores a new contact named name.
func (s *Service) AddContact(ctx context.Context, name string) (model.Contact, model.ValidationErrors, error) {
	if name == "" {
		return model.Contact{}, model.ValidationErrors{"name": "name is required"}, nil
	}
	c := model.Contact{ID: model.NewID(), Name: name, CreatedAt: s.clock.Now()}
	if err := s.store.PutContact(ctx, c); err != nil {
		return c, nil, fmt.Errorf("saving contact: %w", err)
	}
	return c, nil, nil
}

// Contacts lists every contact.
func (s *Service) Contacts(ctx context.Context) ([]model.Contact, error) {
	return s.store.ListContacts(ctx)
}

// ContactDetails is one contact with its history and study status.
type ContactDetails struct {
	Contact       model.Contact                `json:"contact"`
	Engagement    engagement.ContactEngagement `json:"engagement"`
	Conversations []model.Conversation         `json:"conversations"`
}

// ContactDetails returns the contact with its conversations, newest first.
func (s *Service) ContactDetails(ctx context.Context, contactID string) (ContactDetails, error) {
	c, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return ContactDetails{}, err
	}
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return ContactDetails{}, fmt.Errorf("loading conversations: %w", err)
	}
	return ContactDetails{
		Contact:       c,
		Engagement:    engagement.ComputeContactEngagement(convs, contactID, s.clock.Now(), s.policy),
		Conversations: engagement.ContactConversations(convs, contactID),
	}, nil
}

// GetConversation returns the conversation with id.
func (s *Service) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// SubmitConversation saves c and keeps its reminders in sync. The contact
// name used in reminder texts comes from the contact store.
func (s *Service) SubmitConversation(ctx context.Context, c model.Conversation) (model.Conversation, model.ValidationErrors, error) {
	name := ""
	if c.Contact.ID != "" {
		contact, err := s.store.GetContact(ctx, c.Contact.ID)
		switch {
		case err == nil:
			name = contact.Name
		case errors.Is(err, storage.ErrNotFound):
			return c, model.ValidationErrors{"contact": fmt.Sprintf("unknown contact %q", c.Contact.ID)}, nil
		default:
			return c, nil, fmt.Errorf("loading contact: %w", err)
		}
	}
	return s.scheduler.Submit(ctx, c, name)
}

// DeleteConversation cancels the conversation's reminders and removes it.
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	return s.scheduler.Delete(ctx, id)
}

// FollowUpItem is an upcoming follow-up with its contact's name.
type FollowUpItem struct {
	Conversation model.Conversation `json:"conversation"`
	ContactName  string             `json:"contact_name"`
}

func followUpItems(convs []model.Conversation, contacts []model.Contact, now time.Time, withinDays int) []FollowUpItem {
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
	}
	var items []FollowUpItem
	for _, c := range engagement.UpcomingFollowUps(convs, now, withinDays) {
		items = append(items, FollowUpItem{Conversation: c, ContactName: names[c.Contact.ID]})
	}
	return items
}

// UpcomingFollowUps lists follow-ups due within withinDays days, soonest
// first. A non-positive window uses the configured one.
func (s *Service) UpcomingFollowUps(ctx context.Context, withinDays int) ([]FollowUpItem, error) {
	if withinDays <= 0 {
		withinDays = s.upcomingDays
	}
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading conversations: %w", err)
	}
	contacts, err := s.store.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}
	return followUpItems(convs, contacts, s.clock.Now(), withinDays), nil
}

// Dashboard is the month overview: hours, goal, studies and follow-ups.
type Dashboard struct {
	Summary       report.MonthSummary `json:"summary"`
	Progress      report.Progress     `json:"progress"`
	ActiveStudies int                 `json:"active_studies"`
	FollowUps     []FollowUpItem      `json:"follow_ups"`
}

// Dashboard loads the month overview. The three collections are read
// concurrently.
func (s *Service) Dashboard(ctx context.Context, month time.Month, year int) (Dashboard, error) {
	var (
		reports  []model.ServiceReport
		convs    []model.Conversation
		contacts []model.Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.store.ListServiceReports(gctx)
		if err != nil {
			return fmt.Errorf("loading service reports: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		convs, err = s.store.ListConversations(gctx)
		if err != nil {
			return fmt.Errorf("loading conversations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		contacts, err = s.store.ListContacts(gctx)
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	summary := report.ComputeMonthSummary(reports, month, year, s.policy)
	start, _ := s.policy.MonthRange(month, year)
	return Dashboard{
		Summary:       summary,
		Progress:      report.GoalProgress(summary, s.goalHours),
		ActiveStudies: engagement.ActiveStudiesForMonth(convs, start, s.policy),
		FollowUps:     followUpItems(convs, contacts, s.clock.Now(), s.upcomingDays),
	}, nil
}

// PendingReminders lists reminders the notifier still holds.
func (s *Service) PendingReminders(ctx context.Context) ([]reminder.Scheduled, error) {
	if s.notifier == nil {
		return nil, ErrNotificationsDisabled
	}
	l, ok := s.notifier.(reminder.Lister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	return l.Pending(ctx)
}

// DeliverReminders hands every due reminder to send.
func (s *Service) DeliverReminders(ctx context.Context, send func(reminder.Scheduled) error) (int, error) {
	if s.notifier == nil {
		return 0, ErrNotificationsDisabled
	}
	d, ok := s.notifier.(Deliverer)
	if !ok {
		return 0, ErrDeliveryUnsupported
	}
	return d.Deliver(ctx, s.clock.Now(), send)
}
