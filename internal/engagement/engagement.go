// Package engagement answers per-contact questions over the unordered
// conversation log.
package engagement

import (
	"sort"
	"time"

	"github.com/Tiliavir/ministry-log/internal/model"
	"github.com/Tiliavir/ministry-log/internal/timecalc"
)

// ContactEngagement is the study status of one contact. "Studied previously"
// and "active this month" are distinct: only the latter counts toward the
// current report.
type ContactEngagement struct {
	HasStudiedPreviously bool       `json:"has_studied_previously"`
	IsActiveThisMonth    bool       `json:"is_active_this_month"`
	MostRecentStudyDate  *time.Time `json:"most_recent_study_date"`
}

func studiesOf(conversations []model.Conversation, contactID string) []model.Conversation {
	if contactID == "" {
		return nil
	}
	var out []model.Conversation
	for _, c := range conversations {
		if c.Contact.ID == contactID && c.IsBibleStudy {
			out = append(out, c)
		}
	}
	return out
}

// HasAtLeastOneStudy reports whether any conversation with the contact was a
// Bible study.
func HasAtLeastOneStudy(conversations []model.Conversation, contactID string) bool {
	return len(studiesOf(conversations, contactID)) > 0
}

// MostRecentStudy returns the latest study with the contact, or nil. Studies
// on the same instant resolve to the highest ID.
func MostRecentStudy(conversations []model.Conversation, contactID string) *model.Conversation {
	var best *model.Conversation
	for _, c := range studiesOf(conversations, contactID) {
		if best == nil || c.Date.After(best.Date) || (c.Date.Equal(best.Date) && c.ID > best.ID) {
			c := c
			best = &c
		}
	}
	return best
}

// StudiedForGivenMonth reports whether a study with the contact is dated in
// the calendar month containing month.
func StudiedForGivenMonth(conversations []model.Conversation, contactID string, month time.Time, policy timecalc.Policy) bool {
	for _, c := range studiesOf(conversations, contactID) {
		if policy.SameMonth(c.Date, month) {
			return true
		}
	}
	return false
}

// ComputeContactEngagement combines the three predicates for one contact.
// Unknown contacts yield the zero value.
func ComputeContactEngagement(conversations []model.Conversation, contactID string, referenceMonth time.Time, policy timecalc.Policy) ContactEngagement {
	var e ContactEngagement
	e.HasStudiedPreviously = HasAtLeastOneStudy(conversations, contactID)
	e.IsActiveThisMonth = StudiedForGivenMonth(conversations, contactID, referenceMonth, policy)
	if recent := MostRecentStudy(conversations, contactID); recent != nil {
		d := recent.Date
		e.MostRecentStudyDate = &d
	}
	return e
}

// ActiveStudiesForMonth counts the distinct contacts studied in the month.
func ActiveStudiesForMonth(conversations []model.Conversation, month time.Time, policy timecalc.Policy) int {
	seen := map[string]bool{}
	for _, c := range conversations {
		if c.IsBibleStudy && c.Contact.ID != "" && policy.SameMonth(c.Date, month) {
			seen[c.Contact.ID] = true
		}
	}
	return len(seen)
}

// ContactConversations returns the contact's conversations, newest first.
func ContactConversations(conversations []model.Conversation, contactID string) []model.Conversation {
	var out []model.Conversation
	for _, c := range conversations {
		if c.Contact.ID == contactID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// UpcomingFollowUps returns conversations whose follow-up falls between now
// and withinDays days from now, soonest first. Only follow-ups that carry a
// reminder or a topic are listed.
func UpcomingFollowUps(conversations []model.Conversation, now time.Time, withinDays int) []model.Conversation {
	until := now.AddDate(0, 0, withinDays)
	var out []model.Conversation
	for _, c := range conversations {
		f := c.FollowUp
		if f == nil || (!f.NotifyMe && f.Topic == "") {
			continue
		}
		if f.Date.Before(now) || f.Date.After(until) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FollowUp.Date.Before(out[j].FollowUp.Date)
	})
	return out
}
