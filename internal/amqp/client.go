// Package amqp publishes reminder schedule and cancel requests to RabbitMQ
// for an external delivery worker.
package amqp

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/Tiliavir/ministry-log/internal/reminder"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of *amqp091.Channel the notifier uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Client owns the broker connection and channel.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewClient dials url and declares a durable direct exchange with one bound queue.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Notifier returns a reminder.Notifier publishing on this client's channel.
func (c *Client) Notifier(logger *log.Logger) *Notifier {
	return NewNotifier(c.channel, c.exchangeName, c.queueName, logger)
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Notifier implements reminder.Notifier by publishing ReminderMessages.
type Notifier struct {
	pub        Publisher
	exchange   string
	routingKey string
	logger     *log.Logger
}

var _ reminder.Notifier = (*Notifier)(nil)

// NewNotifier publishes on pub to exchange with routingKey.
func NewNotifier(pub Publisher, exchange, routingKey string, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Notifier{pub: pub, exchange: exchange, routingKey: routingKey, logger: logger}
}

// Schedule publishes a schedule request and returns its new handle.
func (n *Notifier) Schedule(ctx context.Context, content reminder.Content, fireAt time.Time) (string, error) {
	msg := &ReminderMessage{
		Action:         ActionSchedule,
		Handle:         uuid.NewString(),
		ConversationID: content.ConversationID,
		Title:          content.Title,
		Body:           content.Body,
		FireAt:         fireAt,
	}
	if err := n.publish(ctx, msg); err != nil {
		return "", err
	}
	return msg.Handle, nil
}

// Cancel publishes a cancel request for handle.
func (n *Notifier) Cancel(ctx context.Context, handle string) error {
	return n.publish(ctx, &ReminderMessage{Action: ActionCancel, Handle: handle})
}

func (n *Notifier) publish(ctx context.Context, msg *ReminderMessage) error {
	msg.Timestamp = time.Now()
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = n.pub.PublishWithContext(
		ctx,
		n.exchange,   // exchange
		n.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			MessageId:    msg.Handle,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	n.logger.Debug("published reminder message",
		"action", msg.Action,
		"handle", msg.Handle,
		"exchange", n.exchange,
		"routing_key", n.routingKey)
	return nil
}
