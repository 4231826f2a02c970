// Package metrics exposes Prometheus collectors for the API and settlement.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "datashare"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	usageReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "usage_reports_total",
			Help:      "Total number of usage reports processed.",
		},
		[]string{"result"},
	)

	settledMegabytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "megabytes_total",
			Help:      "Total megabytes settled against buyer balances.",
		},
	)

	sessionsTerminated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "terminated_total",
			Help:      "Sessions ended, by reason.",
		},
		[]string{"reason"},
	)

	purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "purchases_total",
			Help:      "Token purchases, by package and result.",
		},
		[]string{"package", "result"},
	)
)

// Termination reasons
const (
	ReasonExhausted = "exhausted"
	ReasonStopped   = "stopped"
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		usageReports,
		settledMegabytes,
		sessionsTerminated,
		purchases,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies for gin routes.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordUsageReport records the outcome of a usage report.
func RecordUsageReport(deltaMB decimal.Decimal, err error) {
	if err != nil {
		usageReports.WithLabelValues("error").Inc()
		return
	}
	usageReports.WithLabelValues("ok").Inc()
	settledMegabytes.Add(deltaMB.InexactFloat64())
}

// RecordSessionTerminated records a session moving to inactive.
func RecordSessionTerminated(reason string) {
	sessionsTerminated.WithLabelValues(reason).Inc()
}

// RecordPurchase records a token purchase attempt.
func RecordPurchase(pkg string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	purchases.WithLabelValues(pkg, result).Inc()
}
