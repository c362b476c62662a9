package usecases_test

import (
	"testing"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/usecases"
)

func TestMerge_Aggregate(t *testing.T) {
	p := usecases.Plan{
		Decision: usecases.PrecisionDecision{Precision: 5, Aggregate: true},
		Groups: []domain.AggregateGroup{
			{GeohashPrefix: "dr5re", Count: 4},
			{GeohashPrefix: "dr5rf", Count: 0},
		},
		// Ignored on the aggregate branch.
		Records: []domain.FountainRecord{{ID: "stray"}},
	}

	out := usecases.Merge(p)
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	if out[0].Kind() != domain.KindAggregate {
		t.Errorf("expected aggregate, got %s", out[0].Kind())
	}
}

func TestMerge_Individual(t *testing.T) {
	p := usecases.Plan{
		Decision: usecases.PrecisionDecision{Precision: 8},
		Records:  []domain.FountainRecord{{ID: "a"}, {ID: "b"}},
	}

	out := usecases.Merge(p)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	for i, want := range []string{"a", "b"} {
		r, ok := out[i].Point()
		if !ok || r.ID != want {
			t.Errorf("result %d: expected point %s, got %+v", i, want, out[i])
		}
	}
}

func TestMerge_EmptyPlan(t *testing.T) {
	out := usecases.Merge(usecases.Plan{Decision: usecases.PrecisionDecision{Aggregate: true}})
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", out)
	}
}
