package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skirental/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// Publisher hands a notification to the mailer.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// AMQPPublisher sends notifications as persistent JSON messages to the pool's queue through
// the default exchange. The mailer consuming the queue owns template rendering.
type AMQPPublisher struct {
	pool *ChannelPool
}

func NewAMQPPublisher(pool *ChannelPool) *AMQPPublisher {
	return &AMQPPublisher{pool: pool}
}

func (p *AMQPPublisher) Publish(ctx context.Context, n models.Notification) error {
	msg, err := buildPublishing(n)
	if err != nil {
		return err
	}

	ch, err := p.pool.Get()
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.Put(ch)

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, "", p.pool.Queue(), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", n.ID, err)
	}
	return nil
}

func buildPublishing(n models.Notification) (amqp.Publishing, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal notification: %w", err)
	}
	ts := n.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    n.ID,
		Type:         n.TemplateKey,
		Timestamp:    ts,
		Body:         body,
	}, nil
}

// LogPublisher only logs notifications. Used when no broker is configured.
type LogPublisher struct {
	logger *zerolog.Logger
}

func NewLogPublisher(logger *zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, n models.Notification) error {
	if p.logger != nil {
		p.logger.Info().
			Str("notification_id", n.ID).
			Str("recipient", n.Recipient).
			Str("template", n.TemplateKey).
			Msg("Notification delivered to log")
	}
	return nil
}
