package http

import (
	"context"
	"time"

	"github.com/samirrijal/tapmap/internal/core/usecases"
)

// Pinger is a dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports message broker connectivity.
type BrokerStatus interface {
	Ping() error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	MapView   *usecases.MapViewService
	Fountains *usecases.FountainService
	DB        Pinger
	Cache     Pinger
	Events    BrokerStatus
	// ViewportWindow is the debounce window for /ws/map-view sessions.
	ViewportWindow time.Duration
	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}
