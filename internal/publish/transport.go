// Package publish delivers due posts to the downstream platform and exports
// publish results for auditing.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

const (
	PublishQueue = "post_publishes"
	AuditQueue   = "post_audit"
)

// Delivery is the wire payload handed to the downstream platform.
type Delivery struct {
	MessageID  string    `json:"message_id"`
	PostID     int       `json:"post_id"`
	CampaignID int       `json:"campaign_id"`
	Caption    string    `json:"caption"`
	ImageURL   string    `json:"image_url,omitempty"`
	SourceURL  string    `json:"source_url"`
	SentAt     time.Time `json:"sent_at"`
}

// Transport performs the actual publish of one post.
type Transport interface {
	Deliver(ctx context.Context, post *model.Post, campaign *model.Campaign) error
}

// AMQPTransport publishes deliveries to a durable RabbitMQ queue.
type AMQPTransport struct {
	channel *amqp.Channel
	queue   string
}

func NewAMQPTransport(conn *amqp.Connection) (*AMQPTransport, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		PublishQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPTransport{channel: ch, queue: q.Name}, nil
}

func (t *AMQPTransport) Deliver(ctx context.Context, post *model.Post, campaign *model.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(Delivery{
		MessageID:  uuid.NewString(),
		PostID:     post.ID,
		CampaignID: campaign.ID,
		Caption:    post.GeneratedCaption,
		ImageURL:   post.ImageURL,
		SourceURL:  post.SourceURL,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return t.channel.Publish(
		"",      // exchange
		t.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// InMemoryTransport keeps deliveries in memory and fans them out to any
// subscribed handlers. Used for local runs without RabbitMQ.
type InMemoryTransport struct {
	mu         sync.Mutex
	deliveries []Delivery
	handlers   []func(Delivery) error
}

func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{}
}

func (t *InMemoryTransport) Subscribe(handler func(Delivery) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

func (t *InMemoryTransport) Deliver(ctx context.Context, post *model.Post, campaign *model.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d := Delivery{
		MessageID:  uuid.NewString(),
		PostID:     post.ID,
		CampaignID: campaign.ID,
		Caption:    post.GeneratedCaption,
		ImageURL:   post.ImageURL,
		SourceURL:  post.SourceURL,
		SentAt:     time.Now().UTC(),
	}

	t.mu.Lock()
	t.deliveries = append(t.deliveries, d)
	handlers := append([]func(Delivery) error(nil), t.handlers...)
	t.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(d); err != nil {
			return err
		}
	}
	return nil
}

// Deliveries returns a copy of everything delivered so far.
func (t *InMemoryTransport) Deliveries() []Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Delivery(nil), t.deliveries...)
}
