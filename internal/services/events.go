package services

import (
	"context"
	"time"
)

// Catalog change event types.
const (
	EventProductCreated      = "product.created"
	EventProductUpdated      = "product.updated"
	EventProductDeleted      = "product.deleted"
	EventOrderStatusChanged  = "order.status_changed"
	eventPublishFailedLogKey = "catalog.event.publish.failed"
)

// CatalogEvent notifies downstream consumers that a catalog document changed.
type CatalogEvent struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"productId,omitempty"`
	OrderID    string    `json:"orderId,omitempty"`
	Status     string    `json:"status,omitempty"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// CatalogEventPublisher delivers catalog events. Publishing is best effort; failures are logged.
type CatalogEventPublisher interface {
	PublishCatalogEvent(ctx context.Context, event CatalogEvent) (string, error)
}

type logFunc func(ctx context.Context, event string, fields map[string]any)

func nopLogger(context.Context, string, map[string]any) {}

func publishEvent(ctx context.Context, publisher CatalogEventPublisher, logger logFunc, event CatalogEvent) {
	if publisher == nil {
		return
	}
	if _, err := publisher.PublishCatalogEvent(ctx, event); err != nil {
		logger(ctx, eventPublishFailedLogKey, map[string]any{
			"eventType": event.Type,
			"productId": event.ProductID,
			"orderId":   event.OrderID,
			"error":     err,
		})
	}
}
