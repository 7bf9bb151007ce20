package consumer

import "context"

// Entity lifecycle operations. Only OpDeleted changes the follow graph.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// EntityEvent is a lifecycle notification published by the service that
// owns an entity type.
type EntityEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Op   string `json:"op"`
}

// EntityEventHandler processes a decoded entity lifecycle event.
type EntityEventHandler interface {
	HandleEntityEvent(ctx context.Context, event *EntityEvent) error
}

// EntityEventConsumer manages the Kafka consumer lifecycle.
type EntityEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}
