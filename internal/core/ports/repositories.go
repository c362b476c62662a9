package ports

import (
	"context"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

// FountainQuery selects fountains inside a bounding box.
type FountainQuery struct {
	BBox    domain.BoundingBox
	Filters domain.Filters
	// Limit caps the number of returned rows. Zero means unbounded.
	Limit int
}

// FountainRepository reads and writes fountain records.
type FountainRepository interface {
	// Find returns matching fountains ordered by latitude, then longitude.
	Find(ctx context.Context, q FountainQuery) ([]domain.FountainRecord, error)
	GetByID(ctx context.Context, id string) (*domain.FountainRecord, error)
	UpsertBatch(ctx context.Context, records []domain.FountainRecord) error
}
