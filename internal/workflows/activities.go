package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/core/usecases"
)

// Activity names as registered on the worker.
const (
	ActivityImportFile            = "ImportFile"
	ActivityPublishDatasetUpdated = "PublishDatasetUpdated"
)

// ErrTypeSchemaViolation marks import failures that retries cannot fix.
const ErrTypeSchemaViolation = "SchemaViolation"

// ImportActivities holds the activity implementations for the import workflow.
type ImportActivities struct {
	Importer  *usecases.ImportService
	Publisher ports.EventPublisher
	// Open returns the source for an export path.
	Open func(path string) ports.FountainSource
}

// ImportFile loads one export into storage, heartbeating after every batch.
func (a *ImportActivities) ImportFile(ctx context.Context, path string) (domain.ImportSummary, error) {
	logger := activity.GetLogger(ctx)

	summary, err := a.Importer.Import(ctx, a.Open(path), path, func(written int) {
		activity.RecordHeartbeat(ctx, written)
	})
	if err != nil {
		if errors.Is(err, domain.ErrSchemaViolation) {
			return summary, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSchemaViolation, err)
		}
		return summary, fmt.Errorf("import %s: %w", path, err)
	}

	logger.Info("import finished", "path", path, "imported", summary.Imported, "skipped", summary.Skipped)
	return summary, nil
}

// PublishDatasetUpdated announces the import so API replicas drop cached plans.
func (a *ImportActivities) PublishDatasetUpdated(ctx context.Context, summary domain.ImportSummary) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Warn("no publisher configured, dataset event skipped")
		return nil
	}
	return a.Publisher.PublishDatasetUpdated(ctx, &ports.DatasetUpdated{
		Source:   summary.Source,
		Imported: summary.Imported,
	})
}
