package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/idempotency"
)

const workflowNotificationConsumer = "workflow-notifications"

type sender interface {
	Send(ctx context.Context, userID uuid.UUID, notifType enums.NotificationType, payload Payload) (*SendResult, error)
}

type payloadDecoder interface {
	DecodePayload(envelope outbox.PayloadEnvelope) (interface{}, error)
}

// Consumer turns workflow events from the notification subscription into
// per-user notifications.
type Consumer struct {
	sender       sender
	decoder      payloadDecoder
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a workflow notification consumer.
func NewConsumer(svc sender, decoder payloadDecoder, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("event decoder required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:       svc,
		decoder:      decoder,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	payload, err := c.decoder.DecodePayload(envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	deliveries := deliveriesFor(envelope, payload)
	if len(deliveries) == 0 {
		c.logg.Debug(logCtx, "event produces no notifications")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, workflowNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.deliver(ctx, deliveries); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, workflowNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	c.logg.Info(logCtx, "workflow event notified")
	return processResult{ack: true}
}

func (c *Consumer) deliver(ctx context.Context, deliveries []delivery) error {
	for _, d := range deliveries {
		for _, userID := range d.Recipients {
			if _, err := c.sender.Send(ctx, userID, d.Type, d.Payload); err != nil {
				return fmt.Errorf("notify %s: %w", userID, err)
			}
		}
	}
	return nil
}
