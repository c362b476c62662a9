// Package fountainfile reads fountain exports from disk.
//
// An export is a JSON object keyed by fountain id:
//
//	{"f1": {"name": "...", "location": {"latitude": 40.7, "longitude": -74.0}, ...}}
//
// Files ending in .zst are zstd-compressed.
package fountainfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
)

type exportLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// point returns the coordinates, or (0, 0) when either one is missing.
// The importer skips (0, 0) records as having no location.
func (l *exportLocation) point() domain.GeoPoint {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return domain.GeoPoint{}
	}
	return domain.GeoPoint{Lat: *l.Latitude, Lon: *l.Longitude}
}

type exportFountain struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Location      *exportLocation `json:"location"`
	Geohash       string          `json:"geohash"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	WaterQuality  string          `json:"waterQuality"`
	Accessibility string          `json:"accessibility"`
	Tags          []string        `json:"tags"`
}

// Source implements ports.FountainSource for a file path.
type Source struct {
	path string
}

var _ ports.FountainSource = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

// Read decodes the whole export. Records are returned ordered by id.
func (s *Source) Read(ctx context.Context) ([]domain.FountainRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(s.path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return Decode(ctx, r)
}

// Decode parses an export from r. Type mismatches are reported as
// domain.ErrSchemaViolation. Records without coordinates decode at (0, 0).
func Decode(ctx context.Context, r io.Reader) ([]domain.FountainRecord, error) {
	var raw map[string]exportFountain
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode export: %w", domain.ErrSchemaViolation, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.FountainRecord, 0, len(ids))
	for _, id := range ids {
		e := raw[id]
		out = append(out, domain.FountainRecord{
			ID:            id,
			Name:          e.Name,
			Description:   e.Description,
			Location:      e.Location.point(),
			Geohash:       e.Geohash,
			Status:        e.Status,
			WaterQuality:  e.WaterQuality,
			Accessibility: e.Accessibility,
			Type:          e.Type,
			Tags:          e.Tags,
		})
	}
	return out, nil
}
