package domain

// ResultKind discriminates the payload carried by a MapResult.
type ResultKind int

const (
	KindAggregate ResultKind = iota + 1
	KindPoint
)

func (k ResultKind) String() string {
	switch k {
	case KindAggregate:
		return "aggregate"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// MapResult is either an aggregate group or a single fountain, never both.
// The zero value carries neither and has Kind() == 0.
type MapResult struct {
	kind      ResultKind
	aggregate AggregateGroup
	point     FountainRecord
}

// AggregateResult wraps an aggregate group.
func AggregateResult(g AggregateGroup) MapResult {
	return MapResult{kind: KindAggregate, aggregate: g}
}

// PointResult wraps an individual fountain.
func PointResult(r FountainRecord) MapResult {
	return MapResult{kind: KindPoint, point: r}
}

func (m MapResult) Kind() ResultKind { return m.kind }

// Aggregate returns the group payload; ok is false for point results.
func (m MapResult) Aggregate() (AggregateGroup, bool) {
	if m.kind != KindAggregate {
		return AggregateGroup{}, false
	}
	return m.aggregate, true
}

// Point returns the fountain payload; ok is false for aggregate results.
func (m MapResult) Point() (FountainRecord, bool) {
	if m.kind != KindPoint {
		return FountainRecord{}, false
	}
	return m.point, true
}
