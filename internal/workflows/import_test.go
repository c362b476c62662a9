package workflows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/core/usecases"
)

type memRepo struct {
	mu      sync.Mutex
	upserts int
	records []domain.FountainRecord
}

func (r *memRepo) Find(context.Context, ports.FountainQuery) ([]domain.FountainRecord, error) {
	return nil, nil
}

func (r *memRepo) GetByID(context.Context, string) (*domain.FountainRecord, error) {
	return nil, domain.ErrNotFound
}

func (r *memRepo) UpsertBatch(_ context.Context, records []domain.FountainRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	r.records = append(r.records, records...)
	return nil
}

type sourceFunc func(ctx context.Context) ([]domain.FountainRecord, error)

func (f sourceFunc) Read(ctx context.Context) ([]domain.FountainRecord, error) { return f(ctx) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []*ports.DatasetUpdated
}

func (p *recordingPublisher) PublishDatasetUpdated(_ context.Context, e *ports.DatasetUpdated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func fountains(n int) []domain.FountainRecord {
	out := make([]domain.FountainRecord, n)
	for i := range out {
		out[i] = domain.FountainRecord{
			ID:       fmt.Sprintf("f%d", i),
			Location: domain.GeoPoint{Lat: 40.7 + float64(i)*0.001, Lon: -73.9},
		}
	}
	return out
}

func newEnv(t *testing.T, acts *ImportActivities) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(FountainImportWorkflow)
	env.RegisterActivity(acts)
	return env
}

func TestFountainImportWorkflow(t *testing.T) {
	repo := &memRepo{}
	pub := &recordingPublisher{}
	acts := &ImportActivities{
		Importer:  usecases.NewImportService(repo, 2),
		Publisher: pub,
		Open: func(string) ports.FountainSource {
			return sourceFunc(func(context.Context) ([]domain.FountainRecord, error) {
				recs := fountains(5)
				recs = append(recs, domain.FountainRecord{ID: "", Location: domain.GeoPoint{Lat: 1, Lon: 1}})
				return recs, nil
			})
		},
	}
	env := newEnv(t, acts)

	env.ExecuteWorkflow(FountainImportWorkflow, ImportInput{Path: "exports/nyc.json"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var got domain.ImportSummary
	require.NoError(t, env.GetWorkflowResult(&got))
	assert.Equal(t, domain.ImportSummary{Source: "exports/nyc.json", Read: 6, Imported: 5, Skipped: 1, Batches: 3}, got)
	assert.Equal(t, 3, repo.upserts)
	require.Len(t, pub.events, 1)
	assert.Equal(t, &ports.DatasetUpdated{Source: "exports/nyc.json", Imported: 5}, pub.events[0])
}

func TestFountainImportWorkflow_NothingImported(t *testing.T) {
	pub := &recordingPublisher{}
	acts := &ImportActivities{
		Importer:  usecases.NewImportService(&memRepo{}, 0),
		Publisher: pub,
		Open: func(string) ports.FountainSource {
			return sourceFunc(func(context.Context) ([]domain.FountainRecord, error) { return nil, nil })
		},
	}
	env := newEnv(t, acts)

	env.ExecuteWorkflow(FountainImportWorkflow, ImportInput{Path: "empty.json"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Empty(t, pub.events)
}

func TestFountainImportWorkflow_SchemaViolationIsNotRetried(t *testing.T) {
	var mu sync.Mutex
	reads := 0
	acts := &ImportActivities{
		Importer:  usecases.NewImportService(&memRepo{}, 0),
		Publisher: &recordingPublisher{},
		Open: func(string) ports.FountainSource {
			return sourceFunc(func(context.Context) ([]domain.FountainRecord, error) {
				mu.Lock()
				reads++
				mu.Unlock()
				return nil, fmt.Errorf("%w: fountain f1: location.latitude missing", domain.ErrSchemaViolation)
			})
		},
	}
	env := newEnv(t, acts)

	env.ExecuteWorkflow(FountainImportWorkflow, ImportInput{Path: "broken.json"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeSchemaViolation, appErr.Type())
	assert.Equal(t, 1, reads)
}

func TestFountainImportWorkflow_PublishFailureStillCompletes(t *testing.T) {
	acts := &ImportActivities{
		Importer:  usecases.NewImportService(&memRepo{}, 0),
		Publisher: &recordingPublisher{},
		Open: func(string) ports.FountainSource {
			return sourceFunc(func(context.Context) ([]domain.FountainRecord, error) { return fountains(3), nil })
		},
	}
	env := newEnv(t, acts)
	env.OnActivity(ActivityPublishDatasetUpdated, mock.Anything, mock.Anything).
		Return(errors.New("nats: no responders available"))

	env.ExecuteWorkflow(FountainImportWorkflow, ImportInput{Path: "exports/nyc.json"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var got domain.ImportSummary
	require.NoError(t, env.GetWorkflowResult(&got))
	assert.Equal(t, 3, got.Imported)
}
