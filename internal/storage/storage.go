package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tiliavir/ministry-log/internal/model"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// ReportStore holds service reports.
type ReportStore interface {
	ListServiceReports(ctx context.Context) ([]model.ServiceReport, error)
	GetServiceReport(ctx context.Context, id string) (model.ServiceReport, error)
	PutServiceReport(ctx context.Context, r model.ServiceReport) error
	DeleteServiceReport(ctx context.Context, id string) error
}

// ConversationStore holds conversations and their follow-ups.
type ConversationStore interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	GetConversation(ctx context.Context, id string) (model.Conversation, error)
	PutConversation(ctx context.Context, c model.Conversation) error
	DeleteConversation(ctx context.Context, id string) error
}

// ContactStore holds contacts.
type ContactStore interface {
	ListContacts(ctx context.Context) ([]model.Contact, error)
	GetContact(ctx context.Context, id string) (model.Contact, error)
	PutContact(ctx context.Context, c model.Contact) error
}

// Provider bundles every store a backend offers.
type Provider interface {
	ReportStore
	ConversationStore
	ContactStore
	Close() error
}

// BaseDir returns the root data directory (~/.mlog).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".mlog"), nil
}
