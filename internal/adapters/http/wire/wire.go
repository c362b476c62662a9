// Package wire holds the JSON shapes of the fountain map API. The core's
// tagged MapResult is flattened here into rows discriminated by result_type.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

const (
	ResultTypeCount    = "count"
	ResultTypeFountain = "fountain"
)

// MapViewRequest is the body of POST /v1/fountains/map-view. Bounds are
// pointers so that a missing bound can be told apart from zero.
type MapViewRequest struct {
	MinLat          *float64 `json:"min_lat"`
	MaxLat          *float64 `json:"max_lat"`
	MinLng          *float64 `json:"min_lng"`
	MaxLng          *float64 `json:"max_lng"`
	Statuses        []string `json:"statuses,omitempty"`
	WaterQualities  []string `json:"water_qualities,omitempty"`
	Accessibilities []string `json:"accessibilities,omitempty"`
	Types           []string `json:"types,omitempty"`
	ForceAggregate  *bool    `json:"force_aggregate,omitempty"`
}

// CountsRequest is the body of POST /v1/fountains/counts.
type CountsRequest struct {
	MapViewRequest
	GeohashPrecision *int `json:"geohash_precision,omitempty"`
}

// BoundsRequest is the body of POST /v1/fountains/bounds.
type BoundsRequest struct {
	MapViewRequest
	MaxResults *int `json:"max_results,omitempty"`
}

// NewMapViewRequest builds the wire request for q.
func NewMapViewRequest(q domain.ViewportQuery) MapViewRequest {
	b := q.BBox
	return MapViewRequest{
		MinLat:          &b.South,
		MaxLat:          &b.North,
		MinLng:          &b.West,
		MaxLng:          &b.East,
		Statuses:        q.Filters.Statuses,
		WaterQualities:  q.Filters.WaterQualities,
		Accessibilities: q.Filters.Accessibilities,
		Types:           q.Filters.Types,
		ForceAggregate:  q.ForceAggregate,
	}
}

// Query converts the request into a ViewportQuery. Bounds are not validated
// here beyond presence.
func (r MapViewRequest) Query() (domain.ViewportQuery, error) {
	if r.MinLat == nil || r.MaxLat == nil || r.MinLng == nil || r.MaxLng == nil {
		return domain.ViewportQuery{}, fmt.Errorf("%w: min_lat, max_lat, min_lng and max_lng are required", domain.ErrSchemaViolation)
	}
	return domain.ViewportQuery{
		BBox: domain.BoundingBox{South: *r.MinLat, North: *r.MaxLat, West: *r.MinLng, East: *r.MaxLng},
		Filters: domain.Filters{
			Statuses:        r.Statuses,
			WaterQualities:  r.WaterQualities,
			Accessibilities: r.Accessibilities,
			Types:           r.Types,
		},
		ForceAggregate: r.ForceAggregate,
	}, nil
}

// DecodeStrict unmarshals body into v, rejecting unknown fields, trailing
// data and type mismatches with domain.ErrSchemaViolation.
func DecodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSchemaViolation, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after request body", domain.ErrSchemaViolation)
	}
	return nil
}

// CountRow is the wire form of an aggregate result.
type CountRow struct {
	ResultType    string  `json:"result_type"`
	GeohashPrefix string  `json:"geohash_prefix"`
	FountainCount int     `json:"fountain_count"`
	CenterLat     float64 `json:"center_lat"`
	CenterLng     float64 `json:"center_lng"`
}

// FountainRow is the wire form of an individual fountain. Optional
// attributes are serialized as null when empty.
type FountainRow struct {
	ResultType    string  `json:"result_type"`
	FountainID    string  `json:"fountain_id"`
	FountainName  string  `json:"fountain_name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Geohash       string  `json:"geohash"`
	Status        *string `json:"status"`
	WaterQuality  *string `json:"water_quality"`
	Accessibility *string `json:"accessibility"`
}

func NewCountRow(g domain.AggregateGroup) CountRow {
	return CountRow{
		ResultType:    ResultTypeCount,
		GeohashPrefix: g.GeohashPrefix,
		FountainCount: g.Count,
		CenterLat:     g.Centroid.Lat,
		CenterLng:     g.Centroid.Lon,
	}
}

func NewFountainRow(r domain.FountainRecord) FountainRow {
	return FountainRow{
		ResultType:    ResultTypeFountain,
		FountainID:    r.ID,
		FountainName:  r.Name,
		Latitude:      r.Location.Lat,
		Longitude:     r.Location.Lon,
		Geohash:       r.Geohash,
		Status:        optional(r.Status),
		WaterQuality:  optional(r.WaterQuality),
		Accessibility: optional(r.Accessibility),
	}
}

// Rows flattens results into wire rows. The returned slice is never nil so
// that an empty result encodes as [].
func Rows(results []domain.MapResult) []any {
	out := make([]any, 0, len(results))
	for _, r := range results {
		if g, ok := r.Aggregate(); ok {
			out = append(out, NewCountRow(g))
			continue
		}
		if p, ok := r.Point(); ok {
			out = append(out, NewFountainRow(p))
		}
	}
	return out
}

// CountRows converts groups without going through MapResult.
func CountRows(groups []domain.AggregateGroup) []CountRow {
	out := make([]CountRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, NewCountRow(g))
	}
	return out
}

func FountainRows(records []domain.FountainRecord) []FountainRow {
	out := make([]FountainRow, 0, len(records))
	for _, r := range records {
		out = append(out, NewFountainRow(r))
	}
	return out
}

// row is the union of both row shapes used when decoding a response.
type row struct {
	ResultType    string   `json:"result_type"`
	GeohashPrefix *string  `json:"geohash_prefix"`
	FountainCount *int     `json:"fountain_count"`
	CenterLat     *float64 `json:"center_lat"`
	CenterLng     *float64 `json:"center_lng"`
	FountainID    *string  `json:"fountain_id"`
	FountainName  string   `json:"fountain_name"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Geohash       string   `json:"geohash"`
	Status        *string  `json:"status"`
	WaterQuality  *string  `json:"water_quality"`
	Accessibility *string  `json:"accessibility"`
}

// DecodeResults parses a map-view response body. A row whose discriminant
// does not match its populated fields is a domain.ErrSchemaViolation.
func DecodeResults(body []byte) ([]domain.MapResult, error) {
	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode results: %w", domain.ErrSchemaViolation, err)
	}
	out := make([]domain.MapResult, 0, len(rows))
	for i, r := range rows {
		switch r.ResultType {
		case ResultTypeCount:
			if r.GeohashPrefix == nil || r.FountainCount == nil || r.CenterLat == nil || r.CenterLng == nil || r.FountainID != nil {
				return nil, fmt.Errorf("%w: row %d: malformed count row", domain.ErrSchemaViolation, i)
			}
			out = append(out, domain.AggregateResult(domain.AggregateGroup{
				GeohashPrefix: *r.GeohashPrefix,
				Count:         *r.FountainCount,
				Centroid:      domain.GeoPoint{Lat: *r.CenterLat, Lon: *r.CenterLng},
			}))
		case ResultTypeFountain:
			if r.FountainID == nil || r.Latitude == nil || r.Longitude == nil || r.FountainCount != nil {
				return nil, fmt.Errorf("%w: row %d: malformed fountain row", domain.ErrSchemaViolation, i)
			}
			out = append(out, domain.PointResult(domain.FountainRecord{
				ID:            *r.FountainID,
				Name:          r.FountainName,
				Location:      domain.GeoPoint{Lat: *r.Latitude, Lon: *r.Longitude},
				Geohash:       r.Geohash,
				Status:        deref(r.Status),
				WaterQuality:  deref(r.WaterQuality),
				Accessibility: deref(r.Accessibility),
			}))
		default:
			return nil, fmt.Errorf("%w: row %d: unknown result_type %q", domain.ErrSchemaViolation, i, r.ResultType)
		}
	}
	return out, nil
}

// FountainDetail is the body of GET /v1/fountains/:id.
type FountainDetail struct {
	FountainID    string   `json:"fountain_id"`
	FountainName  string   `json:"fountain_name"`
	Description   string   `json:"description,omitempty"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Geohash       string   `json:"geohash"`
	Status        *string  `json:"status"`
	WaterQuality  *string  `json:"water_quality"`
	Accessibility *string  `json:"accessibility"`
	Type          string   `json:"type,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

func NewFountainDetail(r domain.FountainRecord) FountainDetail {
	return FountainDetail{
		FountainID:    r.ID,
		FountainName:  r.Name,
		Description:   r.Description,
		Latitude:      r.Location.Lat,
		Longitude:     r.Location.Lon,
		Geohash:       r.Geohash,
		Status:        optional(r.Status),
		WaterQuality:  optional(r.WaterQuality),
		Accessibility: optional(r.Accessibility),
		Type:          r.Type,
		Tags:          r.Tags,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
