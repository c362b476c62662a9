package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

func TestBoundingBox_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bbox    domain.BoundingBox
		wantErr bool
	}{
		{"valid city box", domain.BoundingBox{South: 40.70, North: 40.80, West: -74.02, East: -73.93}, false},
		{"degenerate point box", domain.BoundingBox{South: 10, North: 10, West: 20, East: 20}, false},
		{"whole world", domain.BoundingBox{South: -90, North: 90, West: -180, East: 180}, false},
		{"south above north", domain.BoundingBox{South: 41, North: 40, West: -74, East: -73}, true},
		{"antimeridian crossing", domain.BoundingBox{South: -10, North: 10, West: 170, East: -170}, true},
		{"latitude out of range", domain.BoundingBox{South: -91, North: 10, West: 0, East: 1}, true},
		{"longitude out of range", domain.BoundingBox{South: 0, North: 1, West: 0, East: 181}, true},
		{"NaN", domain.BoundingBox{South: math.NaN(), North: 1, West: 0, East: 1}, true},
		{"Inf", domain.BoundingBox{South: 0, North: math.Inf(1), West: 0, East: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bbox.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidBounds) {
					t.Fatalf("expected ErrInvalidBounds, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBoundingBox_AreaKm2(t *testing.T) {
	// One degree square on the equator.
	b := domain.BoundingBox{South: -0.5, North: 0.5, West: 0, East: 1}
	if got := b.AreaKm2(); math.Abs(got-12321) > 1 {
		t.Errorf("expected ~12321 km², got %f", got)
	}

	// Same span at 60° latitude is halved by the cosine term.
	b = domain.BoundingBox{South: 59.5, North: 60.5, West: 0, East: 1}
	if got := b.AreaKm2(); math.Abs(got-12321*0.5) > 1 {
		t.Errorf("expected ~6160 km², got %f", got)
	}
}

func TestBoundingBox_Contains(t *testing.T) {
	b := domain.BoundingBox{South: 0, North: 1, West: 0, East: 1}
	if !b.Contains(domain.GeoPoint{Lat: 1, Lon: 0}) {
		t.Error("edge point should be contained")
	}
	if b.Contains(domain.GeoPoint{Lat: 1.01, Lon: 0.5}) {
		t.Error("point north of box should not be contained")
	}
	if c := b.Center(); c.Lat != 0.5 || c.Lon != 0.5 {
		t.Errorf("unexpected center %+v", c)
	}
}

func TestMapResult_Variants(t *testing.T) {
	agg := domain.AggregateResult(domain.AggregateGroup{GeohashPrefix: "dr5", Count: 3})
	if agg.Kind() != domain.KindAggregate {
		t.Fatalf("expected aggregate kind, got %s", agg.Kind())
	}
	if _, ok := agg.Point(); ok {
		t.Error("aggregate result must not expose a point payload")
	}
	if g, ok := agg.Aggregate(); !ok || g.Count != 3 {
		t.Errorf("unexpected aggregate payload %+v", g)
	}

	pt := domain.PointResult(domain.FountainRecord{ID: "f1"})
	if _, ok := pt.Aggregate(); ok {
		t.Error("point result must not expose an aggregate payload")
	}
	if r, ok := pt.Point(); !ok || r.ID != "f1" {
		t.Errorf("unexpected point payload %+v", r)
	}
}

func TestFilters_EffectiveStatuses(t *testing.T) {
	if got := (domain.Filters{}).EffectiveStatuses(); len(got) != 1 || got[0] != "active" {
		t.Errorf("expected default [active], got %v", got)
	}
	f := domain.Filters{Statuses: []string{"inactive", "active"}}
	if got := f.EffectiveStatuses(); len(got) != 2 {
		t.Errorf("expected explicit statuses, got %v", got)
	}
}
