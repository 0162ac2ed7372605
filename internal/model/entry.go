package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceReport is one logged block of service time on one calendar day.
type ServiceReport struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Hours   int       `json:"hours"`
	Minutes int       `json:"minutes"`
	LDC     bool      `json:"ldc"`
	Credit  bool      `json:"credit"`
	Tag     string    `json:"tag,omitempty"`
}

// Category identifies the single bucket a report is counted in.
type Category int

const (
	CategoryStandard Category = iota
	CategoryLDC
	CategoryOther
)

// Category returns the bucket of r. LDC wins over a stray tag.
func (r ServiceReport) Category() Category {
	switch {
	case r.LDC:
		return CategoryLDC
	case r.NormalizedTag() != "":
		return CategoryOther
	default:
		return CategoryStandard
	}
}

// NormalizedTag returns the tag with surrounding whitespace removed.
func (r ServiceReport) NormalizedTag() string {
	return strings.TrimSpace(r.Tag)
}

// TotalMinutes returns the logged time in minutes, clamped at zero.
func (r ServiceReport) TotalMinutes() int {
	m := r.Hours*60 + r.Minutes
	if m < 0 {
		return 0
	}
	return m
}

// Validate returns field-keyed problems, or nil when r can be saved.
func (r ServiceReport) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if r.Date.IsZero() {
		errs["date"] = "date is required"
	}
	if r.Hours < 0 {
		errs["hours"] = "hours cannot be negative"
	}
	if r.Minutes < 0 || r.Minutes > 59 {
		errs["minutes"] = "minutes must be between 0 and 59"
	}
	if r.Hours == 0 && r.Minutes == 0 {
		errs["hours"] = "time must be greater than zero"
	}
	if r.LDC && r.NormalizedTag() != "" {
		errs["tag"] = "LDC time cannot carry a tag"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidationErrors maps a field name to a user-facing problem. A nil or
// empty map means the record can be saved.
type ValidationErrors map[string]string

// Error joins the problems into one line, ordered by field.
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return strings.Join(parts, "; ")
}

// DayFile is the top-level structure stored in each daily JSON file.
type DayFile struct {
	Date    string          `json:"date"`
	Reports []ServiceReport `json:"reports"`
}

// ContactRef is a weak reference into the contact list.
type ContactRef struct {
	ID string `json:"id"`
}

// Notification is the handle of one scheduled reminder and its fire time.
type Notification struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

// FollowUp describes a planned future interaction with a contact.
type FollowUp struct {
	Date          time.Time      `json:"date"`
	Topic         string         `json:"topic,omitempty"`
	NotifyMe      bool           `json:"notify_me"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// Conversation is one interaction with a contact.
type Conversation struct {
	ID           string     `json:"id"`
	Contact      ContactRef `json:"contact"`
	Date         time.Time  `json:"date"`
	Note         string     `json:"note"`
	IsBibleStudy bool       `json:"is_bible_study"`
	NotAtHome    bool       `json:"not_at_home,omitempty"`
	FollowUp     *FollowUp  `json:"follow_up,omitempty"`
}

// Handles returns the stored reminder handles of c, if any.
func (c Conversation) Handles() []Notification {
	if c.FollowUp == nil {
		return nil
	}
	return c.FollowUp.Notifications
}

// Contact is a person the publisher talks with.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}
