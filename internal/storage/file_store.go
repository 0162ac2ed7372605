package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

// FileStore keeps records as human-readable JSON under a base directory:
// service reports in one file per day (reports/YYYY/MM/DD.json), contacts and
// conversations in one file each.
type FileStore struct {
	base string
}

// NewFileStore returns a FileStore rooted at base.
func NewFileStore(base string) *FileStore {
	return &FileStore{base: base}
}

// Close is a no-op; every operation opens and closes its own files.
func (s *FileStore) Close() error { return nil }

type conversationFile struct {
	Conversations []model.Conversation `json:"conversations"`
}

type contactFile struct {
	Contacts []model.Contact `json:"contacts"`
}

func (s *FileStore) reportsDir() string {
	return filepath.Join(s.base, "reports")
}

// dayFilePath returns the path for the given date's JSON file.
func (s *FileStore) dayFilePath(t time.Time) string {
	return filepath.Join(s.reportsDir(), t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// ReadJSON decodes path into v. A missing file leaves v untouched and reports
// false. A corrupt file is moved aside to <path>.corrupt.
func ReadJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return false, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	return true, nil
}

// WriteJSON atomically writes v to path.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// LoadDay loads the DayFile for the given date. Returns an empty DayFile if not found.
func (s *FileStore) LoadDay(t time.Time) (model.DayFile, error) {
	df := model.DayFile{Date: t.Format("2006-01-02"), Reports: []model.ServiceReport{}}
	if _, err := ReadJSON(s.dayFilePath(t), &df); err != nil {
		return model.DayFile{}, err
	}
	return df, nil
}

// SaveDay atomically writes a DayFile for the given date. An empty day
// removes the file.
func (s *FileStore) SaveDay(t time.Time, df model.DayFile) error {
	path := s.dayFilePath(t)
	if len(df.Reports) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage error removing %s: %w", path, err)
		}
		return nil
	}
	return WriteJSON(path, df)
}

// dayFiles lists every day file path, oldest first.
func (s *FileStore) dayFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.reportsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage error listing reports: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ListServiceReports loads every stored report, oldest day first.
func (s *FileStore) ListServiceReports(ctx context.Context) ([]model.ServiceReport, error) {
	paths, err := s.dayFiles()
	if err != nil {
		return nil, err
	}
	var reports []model.ServiceReport
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var df model.DayFile
		if _, err := ReadJSON(p, &df); err != nil {
			return nil, err
		}
		reports = append(reports, df.Reports...)
	}
	return reports, nil
}

// findReport locates the stored report with id.
func (s *FileStore) findReport(ctx context.Context, id string) (model.ServiceReport, error) {
	reports, err := s.ListServiceReports(ctx)
	if err != nil {
		return model.ServiceReport{}, err
	}
	for _, r := range reports {
		if r.ID == id {
			return r, nil
		}
	}
	return model.ServiceReport{}, fmt.Errorf("service report %s: %w", id, ErrNotFound)
}

// GetServiceReport returns the report with id.
func (s *FileStore) GetServiceReport(ctx context.Context, id string) (model.ServiceReport, error) {
	return s.findReport(ctx, id)
}

// PutServiceReport replaces or appends r in the day file of its date. A
// report whose date changed is moved out of its previous day file.
func (s *FileStore) PutServiceReport(ctx context.Context, r model.ServiceReport) error {
	prev, err := s.findReport(ctx, r.ID)
	if err == nil && !timecalc.SameDay(prev.Date, r.Date) {
		if err := s.removeFromDay(prev.Date, r.ID); err != nil {
			return err
		}
	}

	df, err := s.LoadDay(r.Date)
	if err != nil {
		return err
	}
	for i, e := range df.Reports {
		if e.ID == r.ID {
			df.Reports[i] = r
			return s.SaveDay(r.Date, df)
		}
	}
	df.Reports = append(df.Reports, r)
	return s.SaveDay(r.Date, df)
}

func (s *FileStore) removeFromDay(day time.Time, id string) error {
	df, err := s.LoadDay(day)
	if err != nil {
		return err
	}
	kept := df.Reports[:0]
	for _, e := range df.Reports {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	df.Reports = kept
	return s.SaveDay(day, df)
}

// DeleteServiceReport removes the report with id.
func (s *FileStore) DeleteServiceReport(ctx context.Context, id string) error {
	prev, err := s.findReport(ctx, id)
	if err != nil {
		return err
	}
	return s.removeFromDay(prev.Date, id)
}

func (s *FileStore) conversationsPath() string {
	return filepath.Join(s.base, "conversations.json")
}

func (s *FileStore) loadConversations() (conversationFile, error) {
	cf := conversationFile{Conversations: []model.Conversation{}}
	_, err := ReadJSON(s.conversationsPath(), &cf)
	return cf, err
}

// ListConversations loads every stored conversation.
func (s *FileStore) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	cf, err := s.loadConversations()
	if err != nil {
		return nil, err
	}
	return cf.Conversations, nil
}

// GetConversation returns the conversation with id.
func (s *FileStore) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	cf, err := s.loadConversations()
	if err != nil {
		return model.Conversation{}, err
	}
	for _, c := range cf.Conversations {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Conversation{}, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
}

// PutConversation replaces or appends c.
func (s *FileStore) PutConversation(ctx context.Context, c model.Conversation) error {
	cf, err := s.loadConversations()
	if err != nil {
		return err
	}
	for i, e := range cf.Conversations {
		if e.ID == c.ID {
			cf.Conversations[i] = c
			return WriteJSON(s.conversationsPath(), cf)
		}
	}
	cf.Conversations = append(cf.Conversations, c)
	return WriteJSON(s.conversationsPath(), cf)
}

// DeleteConversation removes the conversation with id.
func (s *FileStore) DeleteConversation(ctx context.Context, id string) error {
	cf, err := s.loadConversations()
	if err != nil {
		return err
	}
	for i, e := range cf.Conversations {
		if e.ID == id {
			cf.Conversations = append(cf.Conversations[:i], cf.Conversations[i+1:]...)
			return WriteJSON(s.conversationsPath(), cf)
		}
	}
	return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
}

func (s *FileStore) contactsPath() string {
	return filepath.Join(s.base, "contacts.json")
}

// ListContacts loads every stored contact.
func (s *FileStore) ListContacts(ctx context.Context) ([]model.Contact, error) {
	cf := contactFile{Contacts: []model.Contact{}}
	if _, err := ReadJSON(s.contactsPath(), &cf); err != nil {
		return nil, err
	}
	return cf.Contacts, nil
}

// GetContact returns the contact with id.
func (s *FileStore) GetContact(ctx context.Context, id string) (model.Contact, error) {
	contacts, err := s.ListContacts(ctx)
	if err != nil {
		return model.Contact{}, err
	}
	for _, c := range contacts {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Contact{}, fmt.Errorf("contact %s: %w", id, ErrNotFound)
}

// PutContact replaces or appends c.
func (s *FileStore) PutContact(ctx context.Context, c model.Contact) error {
	contacts, err := s.ListContacts(ctx)
	if err != nil {
		return err
	}
	for i, e := range contacts {
		if e.ID == c.ID {
			contacts[i] = c
			return WriteJSON(s.contactsPath(), contactFile{Contacts: contacts})
		}
	}
	contacts = append(contacts, c)
	return WriteJSON(s.contactsPath(), contactFile{Contacts: contacts})
}
