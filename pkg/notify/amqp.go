package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"swapshelf/pkg/domain"
)

const contactQueue = "swapshelf.contact-requests"

// AMQPPublisher publishes contact-request events to a RabbitMQ queue.
// Messages are persistent so a broker restart does not drop pending
// notifications.
type AMQPPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
}

// NewAMQPPublisher connects to the broker and declares the queue.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(contactQueue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	p.conn = conn
	p.channel = channel
	return nil
}

// PublishContactRequest sends the event as a persistent JSON message. A dead
// connection is re-dialed once before giving up.
func (p *AMQPPublisher) PublishContactRequest(ctx context.Context, req domain.ContactRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal contact request: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}
	err = p.channel.PublishWithContext(ctx, "", contactQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    req.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish contact request: %w", err)
	}
	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
