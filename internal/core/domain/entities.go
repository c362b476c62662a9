package domain

// DefaultStatus is the status applied when a query does not filter by status.
const DefaultStatus = "active"

// FountainRecord is a drinking fountain as stored by the persistence layer.
type FountainRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Location      GeoPoint `json:"location"`
	Geohash       string   `json:"geohash"`
	Status        string   `json:"status,omitempty"`
	WaterQuality  string   `json:"water_quality,omitempty"`
	Accessibility string   `json:"accessibility,omitempty"`
	Type          string   `json:"type,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// AggregateGroup summarises every fountain sharing a geohash prefix.
type AggregateGroup struct {
	GeohashPrefix string   `json:"geohash_prefix"`
	Count         int      `json:"count"`
	Centroid      GeoPoint `json:"centroid"`
}

// Filters narrows a viewport query by fountain attributes. Empty slices
// mean "no constraint", except Statuses which defaults to DefaultStatus.
type Filters struct {
	Statuses        []string `json:"statuses,omitempty"`
	WaterQualities  []string `json:"water_qualities,omitempty"`
	Accessibilities []string `json:"accessibilities,omitempty"`
	Types           []string `json:"types,omitempty"`
}

// EffectiveStatuses returns the status filter actually applied to storage.
func (f Filters) EffectiveStatuses() []string {
	if len(f.Statuses) == 0 {
		return []string{DefaultStatus}
	}
	return f.Statuses
}

// ViewportQuery is a single map-view request.
type ViewportQuery struct {
	BBox    BoundingBox `json:"bbox"`
	Filters Filters     `json:"filters"`
	// ForceAggregate overrides the area-based aggregation decision when set.
	ForceAggregate *bool `json:"force_aggregate,omitempty"`
}

// ImportSummary reports the outcome of a fountain import run.
type ImportSummary struct {
	Source   string `json:"source"`
	Read     int    `json:"read"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Batches  int    `json:"batches"`
}
