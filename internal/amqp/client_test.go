package amqp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Tiliavir/ministry-log/internal/amqp"
	"github.com/Tiliavir/ministry-log/internal/reminder"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestNotifierScheduleAndCancel(t *testing.T) {
	pub := &fakePublisher{}
	n := amqp.NewNotifier(pub, "mlog", "reminders", nil)
	fireAt := time.Date(2024, 1, 9, 18, 0, 0, 0, time.UTC)

	handle, err := n.Schedule(context.Background(), reminder.Content{ConversationID: "c1", Title: "Follow-up with Anna"}, fireAt)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if handle == "" {
		t.Fatal("empty handle")
	}
	if err := n.Cancel(context.Background(), handle); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if len(pub.sent) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.sent))
	}
	first := pub.sent[0]
	if first.exchange != "mlog" || first.key != "reminders" {
		t.Errorf("routing = %s/%s", first.exchange, first.key)
	}
	if first.msg.DeliveryMode != amqp091.Persistent || first.msg.ContentType != "application/json" {
		t.Errorf("publishing = %+v", first.msg)
	}

	msg, err := amqp.ReminderMessageFromJSON(first.msg.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Action != amqp.ActionSchedule || msg.Handle != handle || msg.ConversationID != "c1" || !msg.FireAt.Equal(fireAt) {
		t.Errorf("schedule message = %+v", msg)
	}

	cancelMsg, err := amqp.ReminderMessageFromJSON(pub.sent[1].msg.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cancelMsg.Action != amqp.ActionCancel || cancelMsg.Handle != handle {
		t.Errorf("cancel message = %+v", cancelMsg)
	}
}

func TestNotifierPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	n := amqp.NewNotifier(pub, "mlog", "reminders", nil)
	if _, err := n.Schedule(context.Background(), reminder.Content{}, time.Now()); err == nil {
		t.Error("Schedule should fail when publishing fails")
	}
}
