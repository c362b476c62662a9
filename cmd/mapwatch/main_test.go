package main

import (
	"testing"

	"github.com/samirrijal/tapmap/internal/core/domain"
)

func TestParseViewport(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		force   *bool
		wantErr bool
	}{
		{name: "plain", line: "40.70 40.80 -74.02 -73.93"},
		{name: "aggregate", line: "40.70 40.80 -74.02 -73.93 aggregate", force: ptr(true)},
		{name: "individual", line: "40.70 40.80 -74.02 -73.93 individual", force: ptr(false)},
		{name: "too few fields", line: "40.70 40.80 -74.02", wantErr: true},
		{name: "not a number", line: "40.70 north -74.02 -73.93", wantErr: true},
		{name: "unknown mode", line: "40.70 40.80 -74.02 -73.93 clustered", wantErr: true},
		{name: "inverted box", line: "40.80 40.70 -74.02 -73.93", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parseViewport(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := domain.BoundingBox{South: 40.70, North: 40.80, West: -74.02, East: -73.93}
			if q.BBox != want {
				t.Errorf("bbox = %+v, want %+v", q.BBox, want)
			}
			switch {
			case tt.force == nil && q.ForceAggregate != nil:
				t.Errorf("expected no override, got %v", *q.ForceAggregate)
			case tt.force != nil && (q.ForceAggregate == nil || *q.ForceAggregate != *tt.force):
				t.Errorf("expected override %v, got %v", *tt.force, q.ForceAggregate)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
