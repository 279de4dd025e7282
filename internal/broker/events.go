package broker

import (
	"context"
	"fmt"

	"github.com/pmbright/synclet/internal/models"
)

// EventPublisher publishes sync lifecycle events for downstream consumers.
// Keys are chosen so all events about one order land on the same partition.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderSynced publishes OrderSynced event
func (ep *EventPublisher) PublishOrderSynced(ctx context.Context, event *models.OrderSyncedEvent) error {
	key := fmt.Sprintf("order-%d", event.RemoteID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSyncCompleted publishes SyncCompleted event
func (ep *EventPublisher) PublishSyncCompleted(ctx context.Context, event *models.SyncCompletedEvent) error {
	key := "sync-" + event.RunID
	return ep.producer.PublishEvent(ctx, key, event)
}
