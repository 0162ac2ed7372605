package reminder_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/reminder"
	"github.com/Tiliavir/ministry-log/internal/storage"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

type scheduled struct {
	content reminder.Content
	fireAt  time.Time
}

type fakeNotifier struct {
	next       int
	active     map[string]scheduled
	cancelled  []string
	failAt     map[time.Time]bool
	failCancel bool
	denied     bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{active: map[string]scheduled{}, failAt: map[time.Time]bool{}}
}

func (f *fakeNotifier) Schedule(_ context.Context, c reminder.Content, at time.Time) (string, error) {
	if f.failAt[at] {
		return "", errors.New("boom")
	}
	f.next++
	h := fmt.Sprintf("h%d", f.next)
	f.active[h] = scheduled{content: c, fireAt: at}
	return h, nil
}

func (f *fakeNotifier) Cancel(_ context.Context, handle string) error {
	f.cancelled = append(f.cancelled, handle)
	delete(f.active, handle)
	if f.failCancel {
		return errors.New("cancel failed")
	}
	return nil
}

type permissionNotifier struct {
	*fakeNotifier
}

func (p permissionNotifier) Permitted(context.Context) (bool, error) {
	return !p.denied, nil
}

type failingStore struct {
	storage.ConversationStore
}

func (failingStore) GetConversation(context.Context, string) (model.Conversation, error) {
	return model.Conversation{}, storage.ErrNotFound
}

func (failingStore) PutConversation(context.Context, model.Conversation) error {
	return errors.New("disk full")
}

var now = time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, n reminder.Notifier) (*reminder.Scheduler, *storage.FileStore) {
	t.Helper()
	store := storage.NewFileStore(t.TempDir())
	s := reminder.New(store, n,
		reminder.WithClock(reminder.ClockFunc(func() time.Time { return now })),
		reminder.WithPolicy(timecalc.UTCPolicy()),
	)
	return s, store
}

func withFollowUp(due time.Time, topic string) model.Conversation {
	return model.Conversation{
		Contact: model.ContactRef{ID: "anna"},
		Date:    now.Add(-time.Hour),
		FollowUp: &model.FollowUp{
			Date:     due,
			Topic:    topic,
			NotifyMe: true,
		},
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{"three days out", now.Add(72 * time.Hour), 2},
		{"tomorrow within 24h", now.Add(20 * time.Hour), 1},
		{"ten minutes out", now.Add(10 * time.Minute), 0},
		{"exactly fifteen minutes out", now.Add(15 * time.Minute), 0},
		{"past", now.Add(-time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reminder.Candidates(tt.due, now); len(got) != tt.want {
				t.Errorf("Candidates = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestSubmit_SchedulesBothReminders(t *testing.T) {
	n := newFakeNotifier()
	s, store := newScheduler(t, n)
	due := now.Add(72 * time.Hour)

	saved, verrs, err := s.Submit(context.Background(), withFollowUp(due, "Kingdom"), "Anna")
	if err != nil || verrs != nil {
		t.Fatalf("Submit: verrs=%v err=%v", verrs, err)
	}
	if saved.ID == "" {
		t.Fatal("Submit did not assign an id")
	}
	hs := saved.Handles()
	if len(hs) != 2 {
		t.Fatalf("handles = %d, want 2", len(hs))
	}
	if !hs[0].Date.Equal(due.Add(-24*time.Hour)) || !hs[1].Date.Equal(due.Add(-15*time.Minute)) {
		t.Errorf("fire times = %v, %v", hs[0].Date, hs[1].Date)
	}

	c := n.active[hs[0].ID].content
	if !strings.Contains(c.Title, "Anna") || !strings.Contains(c.Body, "Kingdom") {
		t.Errorf("content = %+v, want contact name and topic", c)
	}
	if c.ConversationID != saved.ID {
		t.Errorf("content conversation id = %q, want %q", c.ConversationID, saved.ID)
	}

	stored, err := store.GetConversation(context.Background(), saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Handles()) != 2 {
		t.Errorf("stored handles = %d, want 2", len(stored.Handles()))
	}
}

func TestSubmit_PartialAndNone(t *testing.T) {
	n := newFakeNotifier()
	s, _ := newScheduler(t, n)

	saved, _, err := s.Submit(context.Background(), withFollowUp(now.Add(20*time.Hour), ""), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Handles()) != 1 {
		t.Errorf("tomorrow: handles = %d, want 1", len(saved.Handles()))
	}

	saved, _, err = s.Submit(context.Background(), withFollowUp(now.Add(10*time.Minute), ""), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Handles()) != 0 {
		t.Errorf("ten minutes: handles = %d, want 0", len(saved.Handles()))
	}
}

func TestSubmit_EditDateCancelsAndReschedules(t *testing.T) {
	ctx := context.Background()
	n := newFakeNotifier()
	s, _ := newScheduler(t, n)

	jan10 := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)
	saved, _, err := s.Submit(ctx, withFollowUp(jan10, ""), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	original := saved.Handles()

	jan20 := time.Date(2024, 1, 20, 18, 0, 0, 0, time.UTC)
	saved.FollowUp.Date = jan20
	edited, _, err := s.Submit(ctx, saved, "Anna")
	if err != nil {
		t.Fatal(err)
	}

	if len(n.cancelled) != 2 || n.cancelled[0] != original[0].ID || n.cancelled[1] != original[1].ID {
		t.Errorf("cancelled = %v, want both original handles", n.cancelled)
	}
	hs := edited.Handles()
	if len(hs) != 2 {
		t.Fatalf("handles = %d, want 2", len(hs))
	}
	if !hs[0].Date.Equal(time.Date(2024, 1, 19, 18, 0, 0, 0, time.UTC)) ||
		!hs[1].Date.Equal(time.Date(2024, 1, 20, 17, 45, 0, 0, time.UTC)) {
		t.Errorf("fire times = %v, %v", hs[0].Date, hs[1].Date)
	}
	if len(n.active) != 2 {
		t.Errorf("active reminders = %d, want 2", len(n.active))
	}
}

func TestSubmit_UnchangedEditCarriesHandles(t *testing.T) {
	ctx := context.Background()
	n := newFakeNotifier()
	s, _ := newScheduler(t, n)

	saved, _, err := s.Submit(ctx, withFollowUp(now.Add(72*time.Hour), "Hope"), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	saved.Note = "brought a tract"
	saved.FollowUp.Notifications = nil
	edited, _, err := s.Submit(ctx, saved, "Anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(n.cancelled) != 0 {
		t.Errorf("cancelled = %v, want none", n.cancelled)
	}
	if len(edited.Handles()) != 2 || edited.Handles()[0].ID != saved.Handles()[0].ID {
		t.Errorf("handles = %+v, want the stored ones", edited.Handles())
	}
}

func TestSubmit_NotifyOffCancels(t *testing.T) {
	ctx := context.Background()
	n := newFakeNotifier()
	s, store := newScheduler(t, n)

	saved, _, err := s.Submit(ctx, withFollowUp(now.Add(72*time.Hour), ""), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	saved.FollowUp.NotifyMe = false
	edited, _, err := s.Submit(ctx, saved, "Anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(n.cancelled) != 2 {
		t.Errorf("cancelled = %v, want 2 handles", n.cancelled)
	}
	if len(edited.Handles()) != 0 {
		t.Errorf("handles = %v, want none", edited.Handles())
	}
	stored, _ := store.GetConversation(ctx, saved.ID)
	if len(stored.Handles()) != 0 {
		t.Errorf("stored handles = %v, want none", stored.Handles())
	}
}

func TestSubmit_FailureDoesNotBlock(t *testing.T) {
	n := newFakeNotifier()
	due := now.Add(72 * time.Hour)
	n.failAt[due.Add(-24*time.Hour)] = true
	s, _ := newScheduler(t, n)

	saved, verrs, err := s.Submit(context.Background(), withFollowUp(due, ""), "Anna")
	if err != nil || verrs != nil {
		t.Fatalf("Submit: verrs=%v err=%v", verrs, err)
	}
	hs := saved.Handles()
	if len(hs) != 1 || !hs[0].Date.Equal(due.Add(-15*time.Minute)) {
		t.Errorf("handles = %+v, want only the imminent reminder", hs)
	}
}

func TestSubmit_PermissionDenied(t *testing.T) {
	n := permissionNotifier{newFakeNotifier()}
	n.denied = true
	s, store := newScheduler(t, n)

	saved, _, err := s.Submit(context.Background(), withFollowUp(now.Add(72*time.Hour), ""), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Handles()) != 0 || len(n.active) != 0 {
		t.Errorf("handles = %v, want none", saved.Handles())
	}
	if _, err := store.GetConversation(context.Background(), saved.ID); err != nil {
		t.Errorf("conversation should still be saved: %v", err)
	}
}

func TestSubmit_Validation(t *testing.T) {
	n := newFakeNotifier()
	s, store := newScheduler(t, n)

	c := withFollowUp(now.Add(72*time.Hour), "")
	c.Contact.ID = ""
	_, verrs, err := s.Submit(context.Background(), c, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := verrs["contact"]; !ok {
		t.Errorf("verrs = %v, want contact error", verrs)
	}
	if len(n.active) != 0 {
		t.Error("nothing should be scheduled on validation failure")
	}
	all, _ := store.ListConversations(context.Background())
	if len(all) != 0 {
		t.Error("nothing should be saved on validation failure")
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	n := newFakeNotifier()
	s := reminder.New(failingStore{}, n,
		reminder.WithClock(reminder.ClockFunc(func() time.Time { return now })),
	)
	_, verrs, err := s.Submit(context.Background(), withFollowUp(now.Add(72*time.Hour), ""), "Anna")
	if err == nil || verrs != nil {
		t.Errorf("Submit: verrs=%v err=%v, want store error", verrs, err)
	}
	if len(n.active) != 0 {
		t.Errorf("active reminders = %d after a failed save, want 0", len(n.active))
	}
	if len(n.cancelled) != 2 {
		t.Errorf("cancelled = %v, want both new handles", n.cancelled)
	}
}

func TestSubmit_ContactChangeReschedules(t *testing.T) {
	ctx := context.Background()
	n := newFakeNotifier()
	s, _ := newScheduler(t, n)

	saved, _, err := s.Submit(ctx, withFollowUp(now.Add(72*time.Hour), "Hope"), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	original := saved.Handles()

	saved.Contact.ID = "bob"
	edited, _, err := s.Submit(ctx, saved, "Bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(n.cancelled) != 2 || n.cancelled[0] != original[0].ID {
		t.Errorf("cancelled = %v, want the handles naming Anna", n.cancelled)
	}
	hs := edited.Handles()
	if len(hs) != 2 || hs[0].ID == original[0].ID {
		t.Fatalf("handles = %+v, want two new ones", hs)
	}
	for _, h := range hs {
		if got := n.active[h.ID].content.Title; got != "Follow-up with Bob" {
			t.Errorf("title = %q, want the new contact", got)
		}
	}
}

func TestDelete_CancelsAll(t *testing.T) {
	ctx := context.Background()
	n := newFakeNotifier()
	n.failCancel = true
	s, store := newScheduler(t, n)

	saved, _, err := s.Submit(ctx, withFollowUp(now.Add(72*time.Hour), ""), "Anna")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(n.cancelled) != 2 {
		t.Errorf("cancelled = %v, want 2", n.cancelled)
	}
	if _, err := store.GetConversation(ctx, saved.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("conversation still stored: err = %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
}

func TestMessages_Spanish(t *testing.T) {
	m := reminder.NewMessages("es-MX")
	c := m.Content("Ana", "Esperanza", time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC))
	if c.Title != "Revisita con Ana" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Body != "Programada para 10/01 18:00. Tema: Esperanza" {
		t.Errorf("Body = %q", c.Body)
	}

	en := reminder.NewMessages("fr")
	if got := en.Content("Anna", "", time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)).Body; got != "Scheduled for Wed Jan 10 6:00 PM" {
		t.Errorf("fallback Body = %q", got)
	}
}
