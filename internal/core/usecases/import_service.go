package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/pkg/geospatial"
	"github.com/samirrijal/tapmap/internal/pkg/logging"
	"github.com/samirrijal/tapmap/internal/pkg/metrics"
)

const DefaultImportBatchSize = 1000

// Defaults for attributes missing from an export record.
const (
	DefaultFountainName = "Unnamed Fountain"
	DefaultFountainType = "fountain"
)

// ImportService loads fountain exports into storage.
type ImportService struct {
	fountains ports.FountainRepository
	batchSize int
}

// NewImportService creates a new ImportService.
func NewImportService(fountains ports.FountainRepository, batchSize int) *ImportService {
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}
	return &ImportService{fountains: fountains, batchSize: batchSize}
}

// Import reads every record from src, normalizes it and upserts it in
// batches. progress, if set, is called after each committed batch with the
// number of records written so far.
func (s *ImportService) Import(ctx context.Context, src ports.FountainSource, source string, progress func(written int)) (domain.ImportSummary, error) {
	log := logging.FromContext(ctx)
	summary := domain.ImportSummary{Source: source}

	records, err := src.Read(ctx)
	if err != nil {
		return summary, fmt.Errorf("read %s: %w", source, err)
	}
	summary.Read = len(records)

	batch := make([]domain.FountainRecord, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.fountains.UpsertBatch(ctx, batch); err != nil {
			metrics.FountainsImported.WithLabelValues("failed").Add(float64(len(batch)))
			return fmt.Errorf("%w: upsert batch %d: %w", domain.ErrStorageUnavailable, summary.Batches+1, err)
		}
		summary.Batches++
		summary.Imported += len(batch)
		metrics.FountainsImported.WithLabelValues("imported").Add(float64(len(batch)))
		batch = batch[:0]
		if progress != nil {
			progress(summary.Imported)
		}
		return nil
	}

	for _, r := range records {
		norm, ok := NormalizeRecord(r)
		if !ok {
			summary.Skipped++
			metrics.FountainsImported.WithLabelValues("skipped").Inc()
			log.Debug("skipping fountain", "id", r.ID)
			continue
		}
		batch = append(batch, norm)
		if len(batch) == s.batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	log.Info("fountain import finished",
		"source", source,
		"read", summary.Read,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"batches", summary.Batches,
	)
	return summary, nil
}

// NormalizeRecord trims and lowercases attribute values and fills in the
// storage geohash. It rejects records without an id, with invalid
// coordinates, or placed at exactly (0, 0), which marks a missing location
// in exports.
func NormalizeRecord(r domain.FountainRecord) (domain.FountainRecord, bool) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" || !r.Location.Valid() {
		return r, false
	}
	if r.Location.Lat == 0 && r.Location.Lon == 0 {
		return r, false
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		r.Name = DefaultFountainName
	}
	r.Status = normalizeAttr(r.Status)
	if r.Status == "" {
		r.Status = domain.DefaultStatus
	}
	r.WaterQuality = normalizeAttr(r.WaterQuality)
	r.Accessibility = normalizeAttr(r.Accessibility)
	r.Type = normalizeAttr(r.Type)
	if r.Type == "" {
		r.Type = DefaultFountainType
	}

	r.Geohash = strings.ToLower(strings.TrimSpace(r.Geohash))
	if len(r.Geohash) < geospatial.StoragePrecision {
		r.Geohash = geospatial.Encode(r.Location.Lat, r.Location.Lon, geospatial.StoragePrecision)
	}
	return r, true
}

func normalizeAttr(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
