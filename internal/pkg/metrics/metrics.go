package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tapmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tapmap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Map-view metrics
	MapViewPlans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "mapview",
		Name:      "plans_total",
		Help:      "Map-view plans computed, by mode and geohash precision",
	}, []string{"mode", "precision"})

	MapViewResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tapmap",
		Subsystem: "mapview",
		Name:      "results",
		Help:      "Number of results returned per map-view plan",
		Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 2500, 5000},
	}, []string{"mode"})

	MapViewTruncations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "mapview",
		Name:      "truncations_total",
		Help:      "Individual-mode plans truncated at the record cap",
	})

	MapViewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tapmap",
		Subsystem: "mapview",
		Name:      "plan_duration_seconds",
		Help:      "Time spent computing a map-view plan, storage read included",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"mode"})

	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "storage",
		Name:      "errors_total",
		Help:      "Fountain storage failures",
	}, []string{"operation"})

	// Import metrics
	FountainsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "import",
		Name:      "fountains_total",
		Help:      "Fountain records processed by the importer",
	}, []string{"outcome"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tapmap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active map-view WebSocket sessions",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapmap",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Dataset version bumps caused by dataset-updated events",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tapmap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tapmap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tapmap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// ObservePlan records one map-view plan.
func ObservePlan(mode string, precision int, results int, elapsed time.Duration) {
	MapViewPlans.WithLabelValues(mode, strconv.Itoa(precision)).Inc()
	MapViewResults.WithLabelValues(mode).Observe(float64(results))
	MapViewDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat read by UpdateDBPoolMetrics.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies connection pool gauges from a pool snapshot.
func UpdateDBPoolMetrics(s PoolStat) {
	if s == nil {
		return
	}
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
