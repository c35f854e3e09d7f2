package security

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// EngineOpLatency is a per-operation latency histogram. InitMetrics
	// registers it; no code in the server observes it.
	EngineOpLatency *prometheus.HistogramVec

	// SnapshotSaveDuration is a snapshot-write duration histogram.
	// InitMetrics registers it; the snapshot engine does not observe it.
	SnapshotSaveDuration prometheus.Histogram

	// BusSubscribers is a gauge for live WebSocket subscribers. InitMetrics
	// registers it; no code in the server sets it.
	BusSubscribers prometheus.Gauge
)

var initMetricsOnce sync.Once

// InitMetrics registers all Prometheus metrics. Safe to call multiple
// times; only the first call registers.
func InitMetrics() {
	initMetricsOnce.Do(initMetricsInner)
}

func initMetricsInner() {
	f := promauto.With(prometheus.DefaultRegisterer)

	httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hiveminddb_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hiveminddb_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	EngineOpLatency = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hiveminddb_engine_op_duration_seconds",
			Help:    "Engine operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SnapshotSaveDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "hiveminddb_snapshot_save_duration_seconds",
		Help:    "Snapshot write duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	BusSubscribers = f.NewGauge(prometheus.GaugeOpts{
		Name: "hiveminddb_bus_subscribers",
		Help: "Live WebSocket subscribers across all channels",
	})
}

// MetricsMiddleware records HTTP request metrics for Prometheus.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpRequestsTotal == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		httpRequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method).Observe(duration.Seconds())
	}
}
