package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/tapmap/internal/core/domain"
	"github.com/samirrijal/tapmap/internal/core/ports"
	"github.com/samirrijal/tapmap/internal/pkg/logging"
	"github.com/samirrijal/tapmap/internal/pkg/metrics"
	"github.com/samirrijal/tapmap/internal/pkg/telemetry"
)

const (
	DefaultIndividualCap       = 5000
	DefaultAggregateFetchLimit = 250000

	// flightTimeout bounds a coalesced storage read once its callers are gone.
	flightTimeout = 30 * time.Second
)

// MapViewOptions tunes MapViewService. Zero fields take defaults.
type MapViewOptions struct {
	IndividualCap       int
	AggregateFetchLimit int
	OverrideMaxAreaKm2  float64
	// CacheTTL is in seconds; zero disables the result cache.
	CacheTTL int
}

// MapViewService plans map-view responses: it picks an aggregation level for
// the viewport, reads matching fountains once and either groups them by
// geohash prefix or returns them individually.
type MapViewService struct {
	fountains ports.FountainRepository
	cache     ports.CacheService
	selector  *PrecisionSelector
	opts      MapViewOptions

	version atomic.Int64
	flight  singleflight.Group
}

// NewMapViewService creates a new MapViewService. cache may be nil.
func NewMapViewService(fountains ports.FountainRepository, cache ports.CacheService, opts MapViewOptions) *MapViewService {
	if opts.IndividualCap <= 0 {
		opts.IndividualCap = DefaultIndividualCap
	}
	if opts.AggregateFetchLimit < opts.IndividualCap {
		opts.AggregateFetchLimit = DefaultAggregateFetchLimit
	}
	s := &MapViewService{
		fountains: fountains,
		cache:     cache,
		selector:  NewPrecisionSelector(opts.OverrideMaxAreaKm2),
		opts:      opts,
	}
	// Seeded per process so a restarted instance never reads entries that
	// predate an invalidation it missed.
	s.version.Store(time.Now().UnixNano())
	return s
}

// IndividualCap returns the maximum number of individual records per response.
func (s *MapViewService) IndividualCap() int { return s.opts.IndividualCap }

// MapView returns the merged results for q.
func (s *MapViewService) MapView(ctx context.Context, q domain.ViewportQuery) ([]domain.MapResult, error) {
	p, err := s.Plan(ctx, q)
	if err != nil {
		return nil, err
	}
	return Merge(p), nil
}

// Plan validates q, selects the aggregation level and performs exactly one
// storage read.
func (s *MapViewService) Plan(ctx context.Context, q domain.ViewportQuery) (Plan, error) {
	if err := q.BBox.Validate(); err != nil {
		return Plan{}, err
	}
	decision := s.selector.Select(q.BBox, q.ForceAggregate)

	ctx, span := telemetry.Tracer().Start(ctx, "MapViewService.Plan", trace.WithAttributes(
		telemetry.AttrAreaKm2.Float64(decision.AreaKm2),
		telemetry.AttrPrecision.Int(decision.Precision),
		telemetry.AttrMode.String(modeOf(decision)),
	))
	defer span.End()

	key := s.cacheKey(q, decision)
	if p, ok := s.cached(ctx, key); ok {
		span.SetAttributes(telemetry.AttrCacheHit.Bool(true))
		return p, nil
	}
	span.SetAttributes(telemetry.AttrCacheHit.Bool(false))

	// The shared computation outlives any single caller; each caller stops
	// waiting when its own context ends.
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		p, err := s.compute(fctx, q, decision)
		if err != nil {
			return Plan{}, err
		}
		s.store(fctx, key, p)
		return p, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		return Plan{}, res.Err
	}
	p := res.Val.(Plan)
	span.SetAttributes(
		telemetry.AttrResults.Int(p.Len()),
		telemetry.AttrTruncated.Bool(p.Truncated),
	)
	return p, nil
}

func (s *MapViewService) compute(ctx context.Context, q domain.ViewportQuery, d PrecisionDecision) (Plan, error) {
	start := time.Now()
	log := logging.FromContext(ctx)
	p := Plan{Decision: d}

	limit := s.opts.IndividualCap + 1
	if d.Aggregate {
		limit = s.opts.AggregateFetchLimit
	}
	records, err := s.fountains.Find(ctx, ports.FountainQuery{BBox: q.BBox, Filters: q.Filters, Limit: limit})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Plan{}, ctxErr
		}
		metrics.StorageErrors.WithLabelValues("find").Inc()
		return Plan{}, fmt.Errorf("%w: find fountains: %w", domain.ErrStorageUnavailable, err)
	}

	if d.Aggregate {
		if len(records) >= s.opts.AggregateFetchLimit {
			log.Warn("aggregate fetch limit reached, counts may be low",
				"limit", s.opts.AggregateFetchLimit, "precision", d.Precision)
		}
		p.Groups = Group(records, d.Precision)
	} else {
		SortRecords(records)
		if len(records) > s.opts.IndividualCap {
			records = records[:s.opts.IndividualCap]
			p.Truncated = true
			metrics.MapViewTruncations.Inc()
			log.Warn("individual results truncated", "cap", s.opts.IndividualCap)
		}
		p.Records = records
	}

	metrics.ObservePlan(p.Mode(), d.Precision, p.Len(), time.Since(start))
	log.Debug("map view planned",
		"mode", p.Mode(),
		"precision", d.Precision,
		"area_km2", d.AreaKm2,
		"results", p.Len(),
	)
	return p, nil
}

// InvalidateCache makes every previously cached plan unreachable.
func (s *MapViewService) InvalidateCache() {
	s.version.Add(1)
	metrics.CacheInvalidations.Inc()
}

// OnDatasetUpdated is the subscriber callback for dataset change events.
func (s *MapViewService) OnDatasetUpdated(ctx context.Context, event *ports.DatasetUpdated) error {
	s.InvalidateCache()
	logging.FromContext(ctx).Info("map view cache invalidated",
		"source", event.Source, "imported", event.Imported)
	return nil
}

func (s *MapViewService) cached(ctx context.Context, key string) (Plan, bool) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return Plan{}, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("mapview").Inc()
		return Plan{}, false
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.CacheMisses.WithLabelValues("mapview").Inc()
		return Plan{}, false
	}
	metrics.CacheHits.WithLabelValues("mapview").Inc()
	return p, true
}

func (s *MapViewService) store(ctx context.Context, key string, p Plan) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	if data, err := json.Marshal(p); err == nil {
		_ = s.cache.Set(ctx, key, data, s.opts.CacheTTL)
	}
}

// cacheKey identifies a plan by dataset version, decision and normalized filters.
func (s *MapViewService) cacheKey(q domain.ViewportQuery, d PrecisionDecision) string {
	norm := struct {
		BBox      domain.BoundingBox `json:"b"`
		Filters   domain.Filters     `json:"f"`
		Precision int                `json:"p"`
		Aggregate bool               `json:"a"`
	}{
		BBox: q.BBox,
		Filters: domain.Filters{
			Statuses:        sortedCopy(q.Filters.EffectiveStatuses()),
			WaterQualities:  sortedCopy(q.Filters.WaterQualities),
			Accessibilities: sortedCopy(q.Filters.Accessibilities),
			Types:           sortedCopy(q.Filters.Types),
		},
		Precision: d.Precision,
		Aggregate: d.Aggregate,
	}
	data, _ := json.Marshal(norm)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("mapview:%d:%s", s.version.Load(), hex.EncodeToString(sum[:16]))
}

// SortRecords orders records by latitude, longitude and id, ascending.
func SortRecords(records []domain.FountainRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Location.Lat != b.Location.Lat {
			return a.Location.Lat < b.Location.Lat
		}
		if a.Location.Lon != b.Location.Lon {
			return a.Location.Lon < b.Location.Lon
		}
		return a.ID < b.ID
	})
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

func modeOf(d PrecisionDecision) string {
	if d.Aggregate {
		return ModeAggregate
	}
	return ModeIndividual
}
