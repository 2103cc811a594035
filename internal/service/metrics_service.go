package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/academic-dashboard-api/internal/dto"
	"github.com/noah-isme/academic-dashboard-api/internal/snapshot"
)

const metricsNamespace = "academic_dashboard"

var loadStatuses = []snapshot.Status{snapshot.StatusLoaded, snapshot.StatusDegraded, snapshot.StatusFailed}

// MetricsService owns the Prometheus registry of the service and keeps
// running totals for the JSON system view.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration  *prometheus.HistogramVec
	cacheLatency     *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	cacheHitRatio    prometheus.Gauge
	upstreamDuration *prometheus.HistogramVec
	droppedRecords   *prometheus.CounterVec
	collectionStatus *prometheus.GaugeVec
	dbQueryDuration  *prometheus.HistogramVec

	cacheHits, cacheMisses       atomic.Uint64
	requests, requestNanos       atomic.Uint64
	fetches, fetchNanos, dropped atomic.Uint64

	mu               sync.Mutex
	upstreamFailures map[string]uint64
}

func histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labels)
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:         prometheus.NewRegistry(),
		requestDuration:  histogram("http_request_duration_seconds", "Duration of HTTP requests by route template", "method", "path", "status"),
		cacheLatency:     histogram("cache_operation_seconds", "Latency of snapshot and dashboard cache operations", "op"),
		upstreamDuration: histogram("upstream_fetch_duration_seconds", "Duration of academic API collection fetches", "collection", "outcome"),
		dbQueryDuration:  histogram("db_query_duration_seconds", "Duration of data quality queries", "query"),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result",
		}, []string{"result"}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hit_ratio",
			Help:      "Ratio of cache hits to lookups since start",
		}),
		droppedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconcile_dropped_records_total",
			Help:      "Upstream records dropped during normalization",
		}, []string{"collection"}),
		collectionStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_collection_status",
			Help:      "1 for the status of the last load of each collection",
		}, []string{"collection", "status"}),
		upstreamFailures: make(map[string]uint64),
	}
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines",
		Help:      "Number of live goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(m.requestDuration, m.cacheLatency, m.cacheLookups, m.cacheHitRatio,
		m.upstreamDuration, m.droppedRecords, m.collectionStatus, m.dbQueryDuration, goroutines)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	m.cacheHitRatio.Set(float64(hits) / float64(hits+misses))
}

// ObserveCacheWrite tracks the duration of a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// ObserveUpstreamFetch records one collection fetch against the academic API.
func (m *MetricsService) ObserveUpstreamFetch(collection, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(collection, outcome).Observe(duration.Seconds())
	m.fetches.Add(1)
	m.fetchNanos.Add(uint64(duration.Nanoseconds()))
	if outcome != "ok" {
		m.mu.Lock()
		m.upstreamFailures[collection]++
		m.mu.Unlock()
	}
}

// RecordDropped counts records dropped while normalizing a collection.
func (m *MetricsService) RecordDropped(collection string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedRecords.WithLabelValues(collection).Add(float64(n))
	m.dropped.Add(uint64(n))
}

// RecordCollectionStates sets the status gauge of every loaded collection so
// exactly one status per collection reads 1.
func (m *MetricsService) RecordCollectionStates(states []snapshot.CollectionState) {
	if m == nil {
		return
	}
	for _, st := range states {
		for _, status := range loadStatuses {
			v := 0.0
			if st.Status == status {
				v = 1
			}
			m.collectionStatus.WithLabelValues(string(st.Collection), string(status)).Set(v)
		}
	}
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// Snapshot returns the running totals for the system endpoint.
func (m *MetricsService) Snapshot() dto.SystemMetrics {
	if m == nil {
		return dto.SystemMetrics{}
	}
	out := dto.SystemMetrics{
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
		RequestsTotal:   m.requests.Load(),
		UpstreamFetches: m.fetches.Load(),
		DroppedRecords:  m.dropped.Load(),
		Goroutines:      runtime.NumGoroutine(),
		GeneratedAt:     time.Now().UTC(),
	}
	if lookups := out.CacheHits + out.CacheMisses; lookups > 0 {
		out.CacheHitRatio = float64(out.CacheHits) / float64(lookups)
	}
	out.AverageRequestDurationMs = averageMs(m.requestNanos.Load(), out.RequestsTotal)
	out.AverageUpstreamMs = averageMs(m.fetchNanos.Load(), out.UpstreamFetches)

	m.mu.Lock()
	if len(m.upstreamFailures) > 0 {
		out.UpstreamFailures = make(map[string]uint64, len(m.upstreamFailures))
		for k, v := range m.upstreamFailures {
			out.UpstreamFailures[k] = v
		}
	}
	m.mu.Unlock()
	return out
}

func averageMs(totalNanos, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(totalNanos) / float64(n) / float64(time.Millisecond)
}
