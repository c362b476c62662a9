package usecases

import "github.com/samirrijal/tapmap/internal/core/domain"

const (
	ModeAggregate  = "aggregate"
	ModeIndividual = "individual"
)

// Plan is the raw output of the aggregation planner. Exactly one of Groups
// and Records is populated, according to Decision.Aggregate.
type Plan struct {
	Decision PrecisionDecision       `json:"decision"`
	Groups   []domain.AggregateGroup `json:"groups,omitempty"`
	Records  []domain.FountainRecord `json:"records,omitempty"`
	// Truncated is set when individual records were dropped at the cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Mode names the planning branch that produced p.
func (p Plan) Mode() string {
	if p.Decision.Aggregate {
		return ModeAggregate
	}
	return ModeIndividual
}

// Len is the number of results Merge will emit at most.
func (p Plan) Len() int {
	if p.Decision.Aggregate {
		return len(p.Groups)
	}
	return len(p.Records)
}

// Merge flattens a plan into a single sequence of tagged results.
func Merge(p Plan) []domain.MapResult {
	out := make([]domain.MapResult, 0, p.Len())
	if p.Decision.Aggregate {
		for _, g := range p.Groups {
			if g.Count <= 0 {
				continue
			}
			out = append(out, domain.AggregateResult(g))
		}
		return out
	}
	for _, r := range p.Records {
		out = append(out, domain.PointResult(r))
	}
	return out
}
