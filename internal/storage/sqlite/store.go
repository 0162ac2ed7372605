// Package sqlite is a storage.Provider on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/storage"
)

// Store keeps reports, conversations and contacts in SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.Provider = (*Store)(nil)

// Open opens (and migrates) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.Format(timeLayout) }

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const reportColumns = `id, date, hours, minutes, ldc, credit, tag`

func scanReport(row scanner) (model.ServiceReport, error) {
	var (
		r    model.ServiceReport
		date string
	)
	if err := row.Scan(&r.ID, &date, &r.Hours, &r.Minutes, &r.LDC, &r.Credit, &r.Tag); err != nil {
		return r, err
	}
	d, err := parseTime(date)
	if err != nil {
		return r, err
	}
	r.Date = d
	return r, nil
}

// ListServiceReports returns every report ordered by date.
func (s *Store) ListServiceReports(ctx context.Context) ([]model.ServiceReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM service_reports ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list service reports: %w", err)
	}
	defer rows.Close()

	var out []model.ServiceReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetServiceReport returns the report with id.
func (s *Store) GetServiceReport(ctx context.Context, id string) (model.ServiceReport, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM service_reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("service report %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("get service report %s: %w", id, err)
	}
	return r, nil
}

// PutServiceReport inserts or replaces r.
func (s *Store) PutServiceReport(ctx context.Context, r model.ServiceReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_reports (`+reportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date, hours = excluded.hours, minutes = excluded.minutes,
			ldc = excluded.ldc, credit = excluded.credit, tag = excluded.tag`,
		r.ID, formatTime(r.Date), r.Hours, r.Minutes, r.LDC, r.Credit, r.Tag)
	if err != nil {
		return fmt.Errorf("put service report %s: %w", r.ID, err)
	}
	return nil
}

// DeleteServiceReport removes the report with id.
func (s *Store) DeleteServiceReport(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "service_reports", "service report", id)
}

func (s *Store) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

const conversationColumns = `id, contact_id, date, note, is_bible_study, not_at_home, follow_up`

func scanConversation(row scanner) (model.Conversation, error) {
	var (
		c        model.Conversation
		date     string
		followUp sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Contact.ID, &date, &c.Note, &c.IsBibleStudy, &c.NotAtHome, &followUp); err != nil {
		return c, err
	}
	d, err := parseTime(date)
	if err != nil {
		return c, err
	}
	c.Date = d
	if followUp.Valid && followUp.String != "" {
		var f model.FollowUp
		if err := json.Unmarshal([]byte(followUp.String), &f); err != nil {
			return c, fmt.Errorf("decode follow-up of %s: %w", c.ID, err)
		}
		c.FollowUp = &f
	}
	return c, nil
}

// ListConversations returns every conversation ordered by date.
func (s *Store) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+conversationColumns+` FROM conversations ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConversation returns the conversation with id.
func (s *Store) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("conversation %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return c, nil
}

// PutConversation inserts or replaces c.
func (s *Store) PutConversation(ctx context.Context, c model.Conversation) error {
	var followUp sql.NullString
	if c.FollowUp != nil {
		data, err := json.Marshal(c.FollowUp)
		if err != nil {
			return fmt.Errorf("encode follow-up of %s: %w", c.ID, err)
		}
		followUp = sql.NullString{String: string(data), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contact_id = excluded.contact_id, date = excluded.date, note = excluded.note,
			is_bible_study = excluded.is_bible_study, not_at_home = excluded.not_at_home,
			follow_up = excluded.follow_up`,
		c.ID, c.Contact.ID, formatTime(c.Date), c.Note, c.IsBibleStudy, c.NotAtHome, followUp)
	if err != nil {
		return fmt.Errorf("put conversation %s: %w", c.ID, err)
	}
	return nil
}

// DeleteConversation removes the conversation with id.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "conversations", "conversation", id)
}

func scanContact(row scanner) (model.Contact, error) {
	var (
		c       model.Contact
		created string
	)
	if err := row.Scan(&c.ID, &c.Name, &created); err != nil {
		return c, err
	}
	t, err := parseTime(created)
	if err != nil {
		return c, err
	}
	c.CreatedAt = t
	return c, nil
}

// ListContacts returns every contact ordered by name.
func (s *Store) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM contacts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetContact returns the contact with id.
func (s *Store) GetContact(ctx context.Context, id string) (model.Contact, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM contacts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("contact %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("get contact %s: %w", id, err)
	}
	return c, nil
}

// PutContact inserts or replaces c.
func (s *Store) PutContact(ctx context.Context, c model.Contact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at`,
		c.ID, c.Name, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("put contact %s: %w", c.ID, err)
	}
	return nil
}
