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
		Namespace: "faregate",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faregate",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faregate",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Fare-collection metrics
	TapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "fare",
		Name:      "taps_total",
		Help:      "Total taps processed, by system and direction",
	}, []string{"system", "direction"})

	ChargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "fare",
		Name:      "charges_total",
		Help:      "Total successful fare charges",
	}, []string{"system", "type"})

	ChargesDeclined = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "fare",
		Name:      "charges_declined_total",
		Help:      "Total charges declined for insufficient funds",
	}, []string{"system"})

	ForceClosesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "fare",
		Name:      "force_closes_total",
		Help:      "Total journeys force-closed at maximum fare",
	}, []string{"system", "reason"})

	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "fare",
		Name:      "refunds_total",
		Help:      "Total refunds issued",
	}, []string{"system"})

	OpenJourneys = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faregate",
		Subsystem: "fare",
		Name:      "open_journeys",
		Help:      "Current number of open journeys",
	})

	StaffPaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "payroll",
		Name:      "payments_total",
		Help:      "Total staff payments disbursed",
	}, []string{"system", "kind"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faregate",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faregate",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faregate",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faregate",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faregate",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

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

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// Takes an interface to keep pgxpool out of this package's imports.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
