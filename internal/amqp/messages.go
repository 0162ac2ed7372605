package amqp

import (
	"encoding/json"
	"time"
)

// Action tells a delivery worker what to do with a reminder.
type Action string

const (
	ActionSchedule Action = "schedule"
	ActionCancel   Action = "cancel"
)

// ReminderMessage is published for every reminder scheduled or cancelled.
// A worker consuming the queue owns the actual delivery.
type ReminderMessage struct {
	Action         Action    `json:"action"`
	Handle         string    `json:"handle"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Title          string    `json:"title,omitempty"`
	Body           string    `json:"body,omitempty"`
	FireAt         time.Time `json:"fire_at,omitzero"`
	Timestamp      time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON decodes a message published by Notifier.
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
