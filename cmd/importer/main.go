package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/tapmap/internal/adapters/fountainfile"
	natsadapter "github.com/samirrijal/tapmap/internal/adapters/nats"
	"github.com/samirrijal/tapmap/internal/adapters/postgres"
	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/core/usecases"
	"github.com/samirrijal/tapmap/internal/pkg/config"
	"github.com/samirrijal/tapmap/internal/pkg/logging"
	"github.com/samirrijal/tapmap/internal/workflows"
)

const usage = `usage:
  importer worker         run the Temporal import worker
  importer run <file>     start an import workflow for an export file
  importer local <file>   import an export file in-process`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load("tapmap-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	switch os.Args[1] {
	case "worker":
		runWorker(ctx, cfg)
	case "run":
		startWorkflow(ctx, cfg, fileArg())
	case "local":
		runLocal(ctx, cfg, fileArg())
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
}

func fileArg() string {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}
	path, err := filepath.Abs(os.Args[2])
	if err != nil {
		log.Fatalf("path: %v", err)
	}
	return path
}

func openSource(path string) ports.FountainSource {
	return fountainfile.New(path)
}

func newImporter(ctx context.Context, cfg *config.Config) (*usecases.ImportService, *postgres.DB) {
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	return usecases.NewImportService(postgres.NewFountainRepo(db.Pool), usecases.DefaultImportBatchSize), db
}

func dialTemporal(cfg *config.Config) client.Client {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	return c
}

func runWorker(ctx context.Context, cfg *config.Config) {
	importer, db := newImporter(ctx, cfg)
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	c := dialTemporal(cfg)
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.FountainImportWorkflow)
	w.RegisterActivity(&workflows.ImportActivities{
		Importer:  importer,
		Publisher: pub,
		Open:      openSource,
	})

	slog.Info("import worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func startWorkflow(ctx context.Context, cfg *config.Config, path string) {
	c := dialTemporal(cfg)
	defer c.Close()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "fountain-import-" + uuid.NewString(),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.FountainImportWorkflow, workflows.ImportInput{Path: path})
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}
	slog.Info("import workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var summary domain.ImportSummary
	if err := run.Get(ctx, &summary); err != nil {
		log.Fatalf("import failed: %v", err)
	}
	fmt.Printf("read=%d imported=%d skipped=%d batches=%d\n",
		summary.Read, summary.Imported, summary.Skipped, summary.Batches)
}

func runLocal(ctx context.Context, cfg *config.Config, path string) {
	importer, db := newImporter(ctx, cfg)
	defer db.Close()

	summary, err := importer.Import(ctx, openSource(path), path, func(written int) {
		slog.Debug("batch committed", "written", written)
	})
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	fmt.Printf("read=%d imported=%d skipped=%d batches=%d\n",
		summary.Read, summary.Imported, summary.Skipped, summary.Batches)

	if summary.Imported == 0 {
		return
	}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, dataset event not published", "error", err)
		return
	}
	defer pub.Close()
	if err := pub.PublishDatasetUpdated(ctx, &ports.DatasetUpdated{Source: path, Imported: summary.Imported}); err != nil {
		slog.Warn("dataset event not published", "error", err)
	}
}
