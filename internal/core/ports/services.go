package ports

import (
	"context"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

// DatasetUpdated is emitted after fountain records change in storage.
type DatasetUpdated struct {
	Source   string `json:"source"`
	Imported int    `json:"imported"`
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishDatasetUpdated(ctx context.Context, event *DatasetUpdated) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeDatasetUpdated(ctx context.Context, handler func(ctx context.Context, event *DatasetUpdated) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// FountainSource yields fountain records from an external export.
type FountainSource interface {
	Read(ctx context.Context) ([]domain.FountainRecord, error)
}
