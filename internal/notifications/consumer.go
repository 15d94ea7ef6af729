package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type recorder interface {
	Record(ctx context.Context, input RecordInput) (bool, error)
}

// Consumer turns published order and stock events into operator notifications.
type Consumer struct {
	notifications recorder
	subscription  *pubsub.Subscriber
	logg          *logger.Logger
}

func NewConsumer(notifications recorder, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		notifications: notifications,
		subscription:  subscription,
		logg:          logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if !c.process(ctx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process reports whether the message should be acked. Only a failed write
// asks for redelivery.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id":   msg.ID,
		"event_type":   eventType,
		"aggregate_id": msg.Attributes["aggregate_id"],
	})

	if eventType != enums.EventOrderCreated && eventType != enums.EventStockLow {
		c.logg.Info(logCtx, "skipping unhandled event")
		return true
	}

	// malformed messages are acked; redelivery cannot fix them
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	if strings.TrimSpace(envelope.EventID) == "" {
		c.logg.Warn(logCtx, "envelope missing event id")
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	input, err := buildNotification(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return true
	}

	created, err := c.notifications.Record(ctx, input)
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		return false
	}
	if !created {
		c.logg.Info(logCtx, "event already processed")
		return true
	}
	c.logg.Info(logCtx, "operator notified")
	return true
}

func buildNotification(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (RecordInput, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return RecordInput{}, err
		}
		if payload.OrderID <= 0 {
			return RecordInput{}, fmt.Errorf("order id missing")
		}
		units := 0
		for _, line := range payload.Lines {
			units += line.Quantity
		}
		return RecordInput{
			EventID: envelope.EventID,
			Type:    enums.NotificationTypeOrderPlaced,
			Title:   fmt.Sprintf("New order #%d", payload.OrderID),
			Message: fmt.Sprintf("Order #%d placed: %d item(s), total %s.", payload.OrderID, units, money.Format(payload.TotalAmount)),
			Link:    fmt.Sprintf("/api/orders/%d", payload.OrderID),
		}, nil
	case enums.EventStockLow:
		var payload payloads.StockLowEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return RecordInput{}, err
		}
		if payload.ProductID <= 0 {
			return RecordInput{}, fmt.Errorf("product id missing")
		}
		title := fmt.Sprintf("Low stock on product #%d", payload.ProductID)
		if payload.Remaining == 0 {
			title = fmt.Sprintf("Product #%d is sold out", payload.ProductID)
		}
		return RecordInput{
			EventID: envelope.EventID,
			Type:    enums.NotificationTypeLowStock,
			Title:   title,
			Message: fmt.Sprintf("Product #%d has %d unit(s) left (threshold %d).", payload.ProductID, payload.Remaining, payload.Threshold),
			Link:    fmt.Sprintf("/api/products/%d", payload.ProductID),
		}, nil
	default:
		return RecordInput{}, fmt.Errorf("unsupported event type %s", eventType)
	}
}
