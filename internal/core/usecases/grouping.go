package usecases

import (
	"sort"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/pkg/geospatial"
)

type groupAcc struct {
	count  int
	sumLat float64
	sumLon float64
}

// Group buckets records by the first precision characters of their geohash
// and returns one group per non-empty bucket, sorted by prefix. Records whose
// stored geohash is missing or too short are keyed by their location.
func Group(records []domain.FountainRecord, precision int) []domain.AggregateGroup {
	if len(records) == 0 || precision <= 0 {
		return nil
	}

	acc := make(map[string]*groupAcc)
	for _, r := range records {
		key := geospatial.Prefix(r.Geohash, precision)
		if key == "" {
			key = geospatial.Encode(r.Location.Lat, r.Location.Lon, precision)
		}
		a, ok := acc[key]
		if !ok {
			a = &groupAcc{}
			acc[key] = a
		}
		a.count++
		a.sumLat += r.Location.Lat
		a.sumLon += r.Location.Lon
	}

	groups := make([]domain.AggregateGroup, 0, len(acc))
	for prefix, a := range acc {
		groups = append(groups, domain.AggregateGroup{
			GeohashPrefix: prefix,
			Count:         a.count,
			Centroid: domain.GeoPoint{
				Lat: a.sumLat / float64(a.count),
				Lon: a.sumLon / float64(a.count),
			},
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].GeohashPrefix < groups[j].GeohashPrefix
	})
	return groups
}
