package fountainfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/core/usecases"
)

const sampleExport = `{
  "f2": {"name": "Union Square", "location": {"latitude": 40.7359, "longitude": -73.9911}, "status": "active", "waterQuality": "good"},
  "f1": {"name": "Bryant Park", "location": {"latitude": 40.7536, "longitude": -73.9832}, "type": "drinking", "tags": ["outdoor"], "extra": true}
}`

func TestDecode(t *testing.T) {
	t.Parallel()

	got, err := Decode(t.Context(), strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, []string{"outdoor"}, got[0].Tags)
	assert.Equal(t, "f2", got[1].ID)
	assert.Equal(t, "good", got[1].WaterQuality)
	assert.InDelta(t, -73.9911, got[1].Location.Lon, 1e-9)
}

func TestDecode_SchemaViolations(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed":     `{"f1": `,
		"string lat":    `{"f1": {"location": {"latitude": "40.7", "longitude": -74}}}`,
		"string lng":    `{"f1": {"location": {"latitude": 40.7, "longitude": "-74"}}}`,
		"location list": `{"f1": {"location": [40.7, -74]}}`,
		"array not map": `[{"name": "x"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(t.Context(), strings.NewReader(body))
			assert.ErrorIs(t, err, domain.ErrSchemaViolation)
		})
	}
}

func TestDecode_MissingLocationDecodesAtOrigin(t *testing.T) {
	t.Parallel()

	body := `{
	  "a": {"name": "no location"},
	  "b": {"name": "half location", "location": {"latitude": 40.7}},
	  "c": {"name": "empty location", "location": {}}
	}`
	got, err := Decode(t.Context(), strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, domain.GeoPoint{}, r.Location, r.ID)
	}
}

type upsertRecorder struct {
	records []domain.FountainRecord
}

func (u *upsertRecorder) Find(context.Context, ports.FountainQuery) ([]domain.FountainRecord, error) {
	return nil, nil
}

func (u *upsertRecorder) GetByID(context.Context, string) (*domain.FountainRecord, error) {
	return nil, domain.ErrNotFound
}

func (u *upsertRecorder) UpsertBatch(_ context.Context, records []domain.FountainRecord) error {
	u.records = append(u.records, records...)
	return nil
}

func TestImport_MixedExportSkipsRecordWithoutLocation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mixed.json")
	body := `{
	  "a": {"name": "Bryant Park", "location": {"latitude": 40.7536, "longitude": -73.9832}},
	  "b": {"name": "no location"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	repo := &upsertRecorder{}
	summary, err := usecases.NewImportService(repo, 0).Import(t.Context(), New(path), path, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Read)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, repo.records, 1)
	assert.Equal(t, "a", repo.records[0].ID)
}

func TestSource_ReadCompressed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fountains.json.zst")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write([]byte(sampleExport))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	got, err := New(path).Read(t.Context())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSource_ReadPlain(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fountains.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o600))

	got, err := New(path).Read(t.Context())
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = New(filepath.Join(t.TempDir(), "missing.json")).Read(t.Context())
	assert.Error(t, err)
}
