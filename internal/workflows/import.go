package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

// ImportInput is the input for the fountain import workflow.
type ImportInput struct {
	Path string
}

// FountainImportWorkflow loads an export and then publishes a dataset event.
// A failed publish does not fail the run: the data is committed and cached
// plans expire on their own TTL.
func FountainImportWorkflow(ctx workflow.Context, input ImportInput) (domain.ImportSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting fountain import", "path", input.Path)

	importCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeSchemaViolation},
		},
	})

	var summary domain.ImportSummary
	if err := workflow.ExecuteActivity(importCtx, ActivityImportFile, input.Path).Get(ctx, &summary); err != nil {
		return summary, err
	}
	if summary.Imported == 0 {
		logger.Info("Nothing imported, skipping dataset event")
		return summary, nil
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	})
	if err := workflow.ExecuteActivity(publishCtx, ActivityPublishDatasetUpdated, summary).Get(ctx, nil); err != nil {
		logger.Warn("dataset event not published", "error", err)
	}

	logger.Info("Fountain import complete", "imported", summary.Imported, "batches", summary.Batches)
	return summary, nil
}
