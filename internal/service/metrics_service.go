package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/academy-attendance/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	sweepRuns       prometheus.Counter
	sweepDuration   prometheus.Histogram
	sweepRecords    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	adjustments     *prometheus.CounterVec
	holidaysSynced  prometheus.Counter
	lastSweepUnixTs prometheus.Gauge

	cacheHitCount     uint64
	cacheMissCount    uint64
	requestCount      uint64
	sweepRunCount     uint64
	sweepTransitioned uint64
	sweepFailed       uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sweep_runs_total",
		Help: "Absence sweep runs",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_sweep_duration_seconds",
		Help:    "Duration of absence sweep runs",
		Buckets: prometheus.DefBuckets,
	})

	sweepRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_sweep_records_total",
		Help: "Records evaluated by the absence sweep by outcome",
	}, []string{"outcome"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_transitions_total",
		Help: "Committed attendance transitions",
	}, []string{"event", "status"})

	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_adjustments_total",
		Help: "Enrollment adjustment deliveries by type and result",
	}, []string{"type", "result"})

	holidaysSynced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "holiday_entries_imported_total",
		Help: "Holiday entries imported from the calendar feed",
	})

	lastSweep := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "attendance_sweep_last_run_timestamp_seconds",
		Help: "Unix time of the last completed absence sweep",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		sweepRuns, sweepDuration, sweepRecords, transitions, adjustments, holidaysSynced, lastSweep, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		sweepRuns:       sweepRuns,
		sweepDuration:   sweepDuration,
		sweepRecords:    sweepRecords,
		transitions:     transitions,
		adjustments:     adjustments,
		holidaysSynced:  holidaysSynced,
		lastSweepUnixTs: lastSweep,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveSweep records the outcome of one absence sweep run.
func (m *MetricsService) ObserveSweep(evaluated, transitioned, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepDuration.Observe(duration.Seconds())
	m.sweepRecords.WithLabelValues("transitioned").Add(float64(transitioned))
	m.sweepRecords.WithLabelValues("failed").Add(float64(failed))
	m.sweepRecords.WithLabelValues("skipped").Add(float64(evaluated - transitioned - failed))
	m.lastSweepUnixTs.SetToCurrentTime()
	atomic.AddUint64(&m.sweepRunCount, 1)
	atomic.AddUint64(&m.sweepTransitioned, uint64(transitioned))
	atomic.AddUint64(&m.sweepFailed, uint64(failed))
}

// ObserveTransition counts a committed attendance transition.
func (m *MetricsService) ObserveTransition(event, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event, status).Inc()
}

// ObserveAdjustment counts an enrollment adjustment delivery attempt.
func (m *MetricsService) ObserveAdjustment(adjType, result string) {
	if m == nil {
		return
	}
	m.adjustments.WithLabelValues(adjType, result).Inc()
}

// ObserveHolidayImport counts imported holiday entries.
func (m *MetricsService) ObserveHolidayImport(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.holidaysSynced.Add(float64(count))
}

// Snapshot returns aggregated counters for the metrics summary endpoint.
func (m *MetricsService) Snapshot() dto.MetricsSnapshot {
	if m == nil {
		return dto.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return dto.MetricsSnapshot{
		RequestsTotal:     atomic.LoadUint64(&m.requestCount),
		CacheHitRatio:     ratio,
		SweepRuns:         atomic.LoadUint64(&m.sweepRunCount),
		SweepTransitioned: atomic.LoadUint64(&m.sweepTransitioned),
		SweepFailed:       atomic.LoadUint64(&m.sweepFailed),
		Goroutines:        runtime.NumGoroutine(),
		GeneratedAt:       time.Now().UTC(),
	}
}
