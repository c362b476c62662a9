package usecases

import "github.com/samirrijal/tapmap/internal/core/domain"

const (
	// individualPrecision is reported for viewports small enough to show
	// exact points.
	individualPrecision = 8

	// aggregationFloorKm2 is the area at or below which aggregation is always off.
	aggregationFloorKm2 = 10.0

	// DefaultOverrideMaxAreaKm2 is the largest area for which a caller may
	// ask for individual records instead of aggregates.
	DefaultOverrideMaxAreaKm2 = 1000.0
)

// precisionStep maps every viewport larger than MinAreaKm2 to a geohash length.
type precisionStep struct {
	MinAreaKm2 float64
	Precision  int
}

// precisionTable is ordered from the coarsest to the finest step. The first
// step whose MinAreaKm2 is exceeded wins.
var precisionTable = []precisionStep{
	{MinAreaKm2: 1_000_000, Precision: 2},
	{MinAreaKm2: 100_000, Precision: 3},
	{MinAreaKm2: 10_000, Precision: 4},
	{MinAreaKm2: 1_000, Precision: 5},
	{MinAreaKm2: 100, Precision: 6},
	{MinAreaKm2: aggregationFloorKm2, Precision: 7},
}

// PrecisionDecision is the outcome of precision selection for one viewport.
type PrecisionDecision struct {
	AreaKm2   float64 `json:"area_km2"`
	Precision int     `json:"precision"`
	Aggregate bool    `json:"aggregate"`
}

// PrecisionSelector maps viewport area to an aggregation level.
type PrecisionSelector struct {
	overrideMaxAreaKm2 float64
}

// NewPrecisionSelector creates a selector. overrideMaxAreaKm2 bounds the
// area in which forceAggregate=false is honoured; non-positive values
// fall back to DefaultOverrideMaxAreaKm2.
func NewPrecisionSelector(overrideMaxAreaKm2 float64) *PrecisionSelector {
	if overrideMaxAreaKm2 <= 0 {
		overrideMaxAreaKm2 = DefaultOverrideMaxAreaKm2
	}
	return &PrecisionSelector{overrideMaxAreaKm2: overrideMaxAreaKm2}
}

// Select decides precision and aggregation for bbox. The caller must have
// validated bbox.
func (s *PrecisionSelector) Select(bbox domain.BoundingBox, forceAggregate *bool) PrecisionDecision {
	area := bbox.AreaKm2()
	d := PrecisionDecision{AreaKm2: area, Precision: precisionForArea(area)}
	d.Aggregate = d.Precision != individualPrecision

	if forceAggregate == nil {
		return d
	}
	switch {
	case area <= aggregationFloorKm2:
		// Small viewports always show exact points.
	case *forceAggregate:
		d.Aggregate = true
	case area <= s.overrideMaxAreaKm2:
		d.Aggregate = false
	}
	return d
}

// SelectPrecision applies the default selector to bbox.
func SelectPrecision(bbox domain.BoundingBox, forceAggregate *bool) PrecisionDecision {
	return defaultSelector.Select(bbox, forceAggregate)
}

var defaultSelector = NewPrecisionSelector(DefaultOverrideMaxAreaKm2)

func precisionForArea(area float64) int {
	for _, step := range precisionTable {
		if area > step.MinAreaKm2 {
			return step.Precision
		}
	}
	return individualPrecision
}
