package reminder

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	keyTitle          = "reminder.title"
	keyBody           = "reminder.body"
	keyBodyWithTopic  = "reminder.body_topic"
	keyContactMissing = "validation.contact_missing"
	keyDateMissing    = "validation.date_missing"
	keyFollowUpDate   = "validation.follow_up_date"
	keyNotAtHomeStudy = "validation.not_at_home_study"
)

var supportedTags = []language.Tag{language.English, language.Spanish}

var tagMatcher = language.NewMatcher(supportedTags)

var translations = map[language.Tag]map[string]string{
	language.English: {
		keyTitle:          "Follow-up with %s",
		keyBody:           "Scheduled for %s",
		keyBodyWithTopic:  "Scheduled for %s. Topic: %s",
		keyContactMissing: "You must assign the conversation to a contact",
		keyDateMissing:    "The conversation needs a date",
		keyFollowUpDate:   "The follow-up needs a date",
		keyNotAtHomeStudy: "A not-at-home visit cannot be a study",
	},
	language.Spanish: {
		keyTitle:          "Revisita con %s",
		keyBody:           "Programada para %s",
		keyBodyWithTopic:  "Programada para %s. Tema: %s",
		keyContactMissing: "Debes asignar la conversación a un contacto",
		keyDateMissing:    "La conversación necesita una fecha",
		keyFollowUpDate:   "La revisita necesita una fecha",
		keyNotAtHomeStudy: "Una visita sin nadie en casa no puede ser un estudio",
	},
}

var timeLayouts = map[language.Tag]string{
	language.English: "Mon Jan 2 3:04 PM",
	language.Spanish: "02/01 15:04",
}

// Messages renders reminder and validation texts in one language.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// NewMessages returns the texts for lang ("en", "es", "es-MX", ...).
// Unsupported or empty languages fall back to English.
func NewMessages(lang string) *Messages {
	tag := MatchLanguage(lang)
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for t, msgs := range translations {
		for key, msg := range msgs {
			_ = b.SetString(t, key, msg)
		}
	}
	return &Messages{tag: tag, printer: message.NewPrinter(tag, message.Catalog(b))}
}

// MatchLanguage maps lang to the closest supported language.
func MatchLanguage(lang string) language.Tag {
	if lang == "" {
		return language.English
	}
	t, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, _ := tagMatcher.Match(t)
	return supportedTags[idx]
}

// Language returns the selected language.
func (m *Messages) Language() language.Tag { return m.tag }

// FormatTime renders t in the language's short date-time layout.
func (m *Messages) FormatTime(t time.Time) string {
	return t.Format(timeLayouts[m.tag])
}

// Content renders the reminder for a follow-up with contactName at when.
func (m *Messages) Content(contactName, topic string, when time.Time) Content {
	c := Content{Title: m.printer.Sprintf(keyTitle, contactName)}
	if topic != "" {
		c.Body = m.printer.Sprintf(keyBodyWithTopic, m.FormatTime(when), topic)
	} else {
		c.Body = m.printer.Sprintf(keyBody, m.FormatTime(when))
	}
	return c
}

func (m *Messages) text(key string) string {
	return m.printer.Sprintf(key)
}
