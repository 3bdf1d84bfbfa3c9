package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/feedpilot/feedpilot-backend/internal/model"
)

// AuditRecord is the best-effort export of one publish outcome. Export failure
// never affects the post's status.
type AuditRecord struct {
	RecordID   string    `json:"record_id"`
	PostID     int       `json:"post_id"`
	CampaignID int       `json:"campaign_id"`
	PostedAt   time.Time `json:"posted_at"`
	Caption    string    `json:"caption"`
}

// AuditExporter forwards publish results to the external audit consumer.
type AuditExporter interface {
	Export(ctx context.Context, post *model.Post, campaign *model.Campaign) error
}

// AMQPAuditExporter publishes audit records to a durable queue.
type AMQPAuditExporter struct {
	channel *amqp.Channel
	queue   string
}

func NewAMQPAuditExporter(conn *amqp.Connection) (*AMQPAuditExporter, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	q, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPAuditExporter{channel: ch, queue: q.Name}, nil
}

func (e *AMQPAuditExporter) Export(ctx context.Context, post *model.Post, campaign *model.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	postedAt := time.Now().UTC()
	if post.PostedAt != nil {
		postedAt = *post.PostedAt
	}

	body, err := json.Marshal(AuditRecord{
		RecordID:   uuid.NewString(),
		PostID:     post.ID,
		CampaignID: campaign.ID,
		PostedAt:   postedAt,
		Caption:    post.GeneratedCaption,
	})
	if err != nil {
		return err
	}

	return e.channel.Publish("", e.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// NoopAuditExporter is used when no audit consumer is configured.
type NoopAuditExporter struct{}

func (NoopAuditExporter) Export(ctx context.Context, post *model.Post, campaign *model.Campaign) error {
	return nil
}
