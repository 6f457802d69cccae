package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

type AMQPNotifier struct {
	channel *amqp091.Channel
	queue   string
}

// NewAMQPNotifier opens a channel on the connection and declares the durable
// event queue.
func NewAMQPNotifier(conn *amqp091.Connection, queue string) (*AMQPNotifier, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return &AMQPNotifier{
		channel: channel,
		queue:   queue,
	}, nil
}

func (n *AMQPNotifier) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Type, err)
	}

	message := amqp091.Publishing{
		ContentType:  "application/json",
		Type:         ev.Type,
		Body:         body,
		DeliveryMode: amqp091.Persistent,
	}

	if err := n.channel.PublishWithContext(ctx, "", n.queue, false, false, message); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	return nil
}

func (n *AMQPNotifier) Close() error {
	return n.channel.Close()
}
