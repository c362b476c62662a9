package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/pkg/geospatial"
	"github.com/samirrijal/tapmap/internal/pkg/metrics"
)

const (
	DefaultCountsPrecision = 5
	DefaultBoundsResults   = 1000
)

// FountainService serves explicit fountain lookups: details by id, counts
// at a caller-chosen precision and capped point fetches.
type FountainService struct {
	fountains ports.FountainRepository
	cache     ports.CacheService
	cap       int
}

// NewFountainService creates a new FountainService. cache may be nil.
func NewFountainService(fountains ports.FountainRepository, cache ports.CacheService, individualCap int) *FountainService {
	if individualCap <= 0 {
		individualCap = DefaultIndividualCap
	}
	return &FountainService{fountains: fountains, cache: cache, cap: individualCap}
}

// GetByID returns a single fountain or domain.ErrNotFound.
func (s *FountainService) GetByID(ctx context.Context, id string) (*domain.FountainRecord, error) {
	cacheKey := "fountains:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var f domain.FountainRecord
			if err := json.Unmarshal(data, &f); err == nil {
				metrics.CacheHits.WithLabelValues("fountain").Inc()
				return &f, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("fountain").Inc()
	}

	f, err := s.fountains.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("fountain %s: %w", id, domain.ErrNotFound)
		}
		metrics.StorageErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: get fountain: %w", domain.ErrStorageUnavailable, err)
	}
	if f == nil {
		return nil, fmt.Errorf("fountain %s: %w", id, domain.ErrNotFound)
	}

	if s.cache != nil {
		if data, err := json.Marshal(f); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return f, nil
}

// Counts aggregates the fountains in bbox at an explicit geohash precision.
func (s *FountainService) Counts(ctx context.Context, bbox domain.BoundingBox, filters domain.Filters, precision int) ([]domain.AggregateGroup, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	if precision < 1 || precision > geospatial.MaxPrecision {
		return nil, fmt.Errorf("%w: geohash_precision must be 1-%d, got %d",
			domain.ErrSchemaViolation, geospatial.MaxPrecision, precision)
	}

	records, err := s.fountains.Find(ctx, ports.FountainQuery{BBox: bbox, Filters: filters, Limit: DefaultAggregateFetchLimit})
	if err != nil {
		metrics.StorageErrors.WithLabelValues("find").Inc()
		return nil, fmt.Errorf("%w: find fountains: %w", domain.ErrStorageUnavailable, err)
	}
	return Group(records, precision), nil
}

// InBounds returns up to maxResults individual fountains ordered by
// latitude then longitude. maxResults is clamped to the individual cap.
func (s *FountainService) InBounds(ctx context.Context, bbox domain.BoundingBox, filters domain.Filters, maxResults int) ([]domain.FountainRecord, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = DefaultBoundsResults
	}
	if maxResults > s.cap {
		maxResults = s.cap
	}

	records, err := s.fountains.Find(ctx, ports.FountainQuery{BBox: bbox, Filters: filters, Limit: maxResults})
	if err != nil {
		metrics.StorageErrors.WithLabelValues("find").Inc()
		return nil, fmt.Errorf("%w: find fountains: %w", domain.ErrStorageUnavailable, err)
	}
	SortRecords(records)
	if len(records) > maxResults {
		records = records[:maxResults]
	}
	return records, nil
}
