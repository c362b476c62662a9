package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

func TestDecodeStrict_MapViewRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"min_lat":40.5,"max_lat":40.9,"min_lng":-74.3,"max_lng":-73.7}`, false},
		{"with filters", `{"min_lat":1,"max_lat":2,"min_lng":3,"max_lng":4,"statuses":["active"],"types":["bottle"],"force_aggregate":true}`, false},
		{"string coordinate", `{"min_lat":"40.5","max_lat":40.9,"min_lng":-74.3,"max_lng":-73.7}`, true},
		{"malformed", `{"min_lat":40.5,`, true},
		{"unknown field", `{"min_lat":1,"max_lat":2,"min_lng":3,"max_lng":4,"zoom":7}`, true},
		{"trailing data", `{"min_lat":1,"max_lat":2,"min_lng":3,"max_lng":4}{}`, true},
		{"trailing bracket", `{"min_lat":1,"max_lat":2,"min_lng":3,"max_lng":4}]`, true},
		{"trailing brace", `{"min_lat":1,"max_lat":2,"min_lng":3,"max_lng":4}}`, true},
		{"trailing whitespace", "{\"min_lat\":1,\"max_lat\":2,\"min_lng\":3,\"max_lng\":4}\n ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MapViewRequest
			err := DecodeStrict([]byte(tt.body), &req)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrSchemaViolation) {
					t.Errorf("expected ErrSchemaViolation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMapViewRequest_QueryRequiresBounds(t *testing.T) {
	var req MapViewRequest
	if err := DecodeStrict([]byte(`{"min_lat":1,"max_lat":2,"min_lng":3}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := req.Query(); !errors.Is(err, domain.ErrSchemaViolation) {
		t.Errorf("expected ErrSchemaViolation for missing max_lng, got %v", err)
	}
}

func TestMapViewRequest_RoundTrip(t *testing.T) {
	force := true
	in := domain.ViewportQuery{
		BBox:           domain.BoundingBox{South: 0, North: 1, West: -2, East: 3},
		Filters:        domain.Filters{WaterQualities: []string{"good"}},
		ForceAggregate: &force,
	}
	body, err := json.Marshal(NewMapViewRequest(in))
	if err != nil {
		t.Fatal(err)
	}

	var req MapViewRequest
	if err := DecodeStrict(body, &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := req.Query()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.BBox != in.BBox {
		t.Errorf("bbox: got %+v, want %+v", out.BBox, in.BBox)
	}
	if out.ForceAggregate == nil || !*out.ForceAggregate {
		t.Error("expected force_aggregate to survive")
	}
}

func TestCountsRequest_EmbeddedFields(t *testing.T) {
	var req CountsRequest
	err := DecodeStrict([]byte(`{"min_lat":1,"max_lat":2,"min_lng":3,"max_lng":4,"geohash_precision":7}`), &req)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.GeohashPrecision == nil || *req.GeohashPrecision != 7 {
		t.Errorf("expected precision 7, got %v", req.GeohashPrecision)
	}
	if _, err := req.Query(); err != nil {
		t.Errorf("query: %v", err)
	}
}

func TestRows_Shapes(t *testing.T) {
	results := []domain.MapResult{
		domain.AggregateResult(domain.AggregateGroup{GeohashPrefix: "dr5r", Count: 3, Centroid: domain.GeoPoint{Lat: 40.7, Lon: -74}}),
		domain.PointResult(domain.FountainRecord{ID: "f1", Name: "Bryant Park", Location: domain.GeoPoint{Lat: 40.75, Lon: -73.98}, Geohash: "dr5ru6", Status: "active"}),
	}
	body, err := json.Marshal(Rows(results))
	if err != nil {
		t.Fatal(err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatal(err)
	}
	if raw[0]["result_type"] != "count" || raw[0]["fountain_count"].(float64) != 3 {
		t.Errorf("unexpected count row %v", raw[0])
	}
	if _, ok := raw[0]["fountain_id"]; ok {
		t.Error("count row must not carry fountain fields")
	}
	if raw[1]["result_type"] != "fountain" || raw[1]["fountain_id"] != "f1" {
		t.Errorf("unexpected fountain row %v", raw[1])
	}
	if v, ok := raw[1]["water_quality"]; !ok || v != nil {
		t.Errorf("expected water_quality null, got %v", v)
	}

	back, err := DecodeResults(body)
	if err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if back[0].Kind() != domain.KindAggregate || back[1].Kind() != domain.KindPoint {
		t.Errorf("unexpected kinds %s, %s", back[0].Kind(), back[1].Kind())
	}
	p, _ := back[1].Point()
	if p.Status != "active" || p.WaterQuality != "" {
		t.Errorf("unexpected point %+v", p)
	}
}

func TestRows_EmptyEncodesAsArray(t *testing.T) {
	body, err := json.Marshal(Rows(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}

func TestDecodeResults_RejectsMismatchedRows(t *testing.T) {
	bodies := []string{
		`[{"result_type":"count","geohash_prefix":"dr","center_lat":1,"center_lng":2}]`,
		`[{"result_type":"count","geohash_prefix":"dr","fountain_count":1,"center_lat":1,"center_lng":2,"fountain_id":"x"}]`,
		`[{"result_type":"fountain","fountain_id":"x","latitude":1}]`,
		`[{"result_type":"cluster"}]`,
		`[{"result_type":"fountain","fountain_id":"x","latitude":"1","longitude":2}]`,
		`{}`,
	}
	for _, b := range bodies {
		if _, err := DecodeResults([]byte(b)); !errors.Is(err, domain.ErrSchemaViolation) {
			t.Errorf("%s: expected ErrSchemaViolation, got %v", b, err)
		}
	}
}
