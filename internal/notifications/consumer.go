package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/db/models"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	"github.com/valeclub/valeclub-backend/pkg/logger"
	"github.com/valeclub/valeclub-backend/pkg/outbox"
	"github.com/valeclub/valeclub-backend/pkg/outbox/idempotency"
	"github.com/valeclub/valeclub-backend/pkg/outbox/payloads"
)

const membershipAlertConsumer = "membership-alerts"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns entitlement changes into
// membership alerts for the affected member.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a membership alert consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("events subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
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

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != enums.EventSubscriptionActivated && eventType != enums.EventSubscriptionReplaced {
		c.logg.Info(logCtx, "skipping non-entitlement event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, membershipAlertConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "membership alert handling failed", err)
		_ = c.idempotency.Delete(ctx, membershipAlertConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventSubscriptionActivated:
		var payload payloads.SubscriptionActivatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.createActivatedAlert(ctx, payload, logCtx)
	case enums.EventSubscriptionReplaced:
		var payload payloads.SubscriptionReplacedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.createReplacedAlert(ctx, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event not handled")
		return nil
	}
}

func (c *Consumer) createActivatedAlert(ctx context.Context, payload payloads.SubscriptionActivatedEvent, logCtx context.Context) error {
	if payload.MemberID == uuid.Nil {
		return fmt.Errorf("member id missing")
	}
	message := "Your membership is active. Enjoy your discounts!"
	if payload.ExpiresAt != nil {
		message = fmt.Sprintf("Your membership is active until %s.", payload.ExpiresAt.Format("Jan 2, 2006"))
	}
	notification := &models.Notification{
		ID:       uuid.New(),
		MemberID: payload.MemberID,
		Type:     enums.NotificationTypeMembershipAlert,
		Title:    "Membership activated",
		Message:  message,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "member notified of activated membership")
	return nil
}

func (c *Consumer) createReplacedAlert(ctx context.Context, payload payloads.SubscriptionReplacedEvent, logCtx context.Context) error {
	if payload.MemberID == uuid.Nil {
		return fmt.Errorf("member id missing")
	}
	notification := &models.Notification{
		ID:       uuid.New(),
		MemberID: payload.MemberID,
		Type:     enums.NotificationTypeMembershipAlert,
		Title:    "Membership updated",
		Message:  "A newer membership replaced one of your previous plans.",
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "member notified of replaced membership")
	return nil
}
