package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/storage"
	"github.com/Tiliavir/ministry-log/internal/storage/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "mlog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenTwiceRunsMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mlog.db")
	for i := 0; i < 2; i++ {
		s, err := sqlite.Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestServiceReports(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	berlin := time.FixedZone("CET", 3600)

	r := model.ServiceReport{ID: "r1", Date: time.Date(2024, 3, 5, 10, 0, 0, 0, berlin), Hours: 1, Minutes: 30, Tag: "Cart"}
	if err := s.PutServiceReport(ctx, r); err != nil {
		t.Fatalf("PutServiceReport: %v", err)
	}
	r.LDC, r.Tag = true, ""
	if err := s.PutServiceReport(ctx, r); err != nil {
		t.Fatalf("PutServiceReport (update): %v", err)
	}

	got, err := s.GetServiceReport(ctx, "r1")
	if err != nil {
		t.Fatalf("GetServiceReport: %v", err)
	}
	if !got.LDC || got.Tag != "" || !got.Date.Equal(r.Date) {
		t.Errorf("GetServiceReport = %+v", got)
	}

	all, err := s.ListServiceReports(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListServiceReports = %v, %v", all, err)
	}

	if err := s.DeleteServiceReport(ctx, "r1"); err != nil {
		t.Fatalf("DeleteServiceReport: %v", err)
	}
	if err := s.DeleteServiceReport(ctx, "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestConversations(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	c := model.Conversation{
		ID:           "c1",
		Contact:      model.ContactRef{ID: "anna"},
		Date:         time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC),
		IsBibleStudy: true,
		FollowUp: &model.FollowUp{
			Date:          time.Date(2024, 1, 12, 18, 0, 0, 0, time.UTC),
			NotifyMe:      true,
			Notifications: []model.Notification{{ID: "h1", Date: time.Date(2024, 1, 11, 18, 0, 0, 0, time.UTC)}},
		},
	}
	if err := s.PutConversation(ctx, c); err != nil {
		t.Fatalf("PutConversation: %v", err)
	}
	got, err := s.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if !got.IsBibleStudy || got.FollowUp == nil || len(got.FollowUp.Notifications) != 1 {
		t.Errorf("GetConversation = %+v", got)
	}

	c.FollowUp = nil
	if err := s.PutConversation(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetConversation(ctx, "c1")
	if got.FollowUp != nil {
		t.Errorf("follow-up should be cleared, got %+v", got.FollowUp)
	}

	if err := s.DeleteConversation(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetConversation(ctx, "c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetConversation after delete = %v", err)
	}
}

func TestContacts(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range []model.Contact{{ID: "2", Name: "Bob", CreatedAt: created}, {ID: "1", Name: "Anna", CreatedAt: created}} {
		if err := s.PutContact(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.ListContacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Name != "Anna" {
		t.Errorf("ListContacts = %+v", all)
	}
	if _, err := s.GetContact(ctx, "3"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetContact unknown = %v", err)
	}
}
