package usecases_test

import (
	"math"
	"testing"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/usecases"
)

func rec(id string, lat, lon float64, gh string) domain.FountainRecord {
	return domain.FountainRecord{ID: id, Location: domain.GeoPoint{Lat: lat, Lon: lon}, Geohash: gh}
}

func TestGroup_PrefixBuckets(t *testing.T) {
	records := []domain.FountainRecord{
		rec("a", 40.0, -74.0, "dr5regw3pg"),
		rec("b", 42.0, -72.0, "dr5ru7c02w"),
		rec("c", 10.0, 10.0, "s1z0gs3y0z"),
	}

	groups := usecases.Group(records, 3)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(groups), groups)
	}
	if groups[0].GeohashPrefix != "dr5" || groups[0].Count != 2 {
		t.Errorf("unexpected first group %+v", groups[0])
	}
	if groups[0].Centroid.Lat != 41.0 || groups[0].Centroid.Lon != -73.0 {
		t.Errorf("expected arithmetic mean centroid (41, -73), got %+v", groups[0].Centroid)
	}
	if groups[1].GeohashPrefix != "s1z" || groups[1].Count != 1 {
		t.Errorf("unexpected second group %+v", groups[1])
	}
}

func TestGroup_CountsSumToInput(t *testing.T) {
	var records []domain.FountainRecord
	for i := 0; i < 500; i++ {
		lat := -60 + float64(i%120)
		lon := -170 + float64(i*7%340)
		records = append(records, rec("r", lat, lon, ""))
	}

	for precision := 1; precision <= 8; precision++ {
		total := 0
		for _, g := range usecases.Group(records, precision) {
			if g.Count <= 0 {
				t.Fatalf("precision %d: emitted empty group %+v", precision, g)
			}
			if len(g.GeohashPrefix) != precision {
				t.Fatalf("precision %d: prefix %q has wrong length", precision, g.GeohashPrefix)
			}
			total += g.Count
		}
		if total != len(records) {
			t.Errorf("precision %d: counts sum to %d, expected %d", precision, total, len(records))
		}
	}
}

func TestGroup_DerivesMissingGeohash(t *testing.T) {
	records := []domain.FountainRecord{
		rec("stored", 40.7580, -73.9855, "DR5RU7"),
		rec("missing", 40.7581, -73.9856, ""),
		rec("short", 40.7582, -73.9857, "dr"),
	}
	groups := usecases.Group(records, 4)
	if len(groups) != 1 || groups[0].GeohashPrefix != "dr5r" || groups[0].Count != 3 {
		t.Fatalf("expected one dr5r group of 3, got %+v", groups)
	}
}

func TestGroup_Idempotent(t *testing.T) {
	records := []domain.FountainRecord{
		rec("a", 1.1, 2.2, ""), rec("b", 1.3, 2.4, ""), rec("c", 1.7, 2.9, ""),
	}
	first := usecases.Group(records, 2)
	second := usecases.Group(records, 2)
	if len(first) != len(second) {
		t.Fatalf("group count changed between runs")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("group %d differs: %+v vs %+v", i, first[i], second[i])
		}
		if math.IsNaN(first[i].Centroid.Lat) {
			t.Errorf("NaN centroid in %+v", first[i])
		}
	}
}

func TestGroup_Empty(t *testing.T) {
	if got := usecases.Group(nil, 5); len(got) != 0 {
		t.Errorf("expected no groups, got %+v", got)
	}
}
