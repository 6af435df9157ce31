// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "myfleet",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myfleet",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "myfleet",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "path"})

	otpSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myfleet",
		Subsystem: "auth",
		Name:      "otp_requests_total",
		Help:      "OTP requests by outcome.",
	}, []string{"result"})

	fleetMutations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "myfleet",
		Subsystem: "fleet",
		Name:      "mutations_total",
		Help:      "Successful fleet mutations.",
	})

	payments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myfleet",
		Subsystem: "payments",
		Name:      "webhooks_total",
		Help:      "Payment webhooks by resulting order status.",
	}, []string{"status"})

	overviewClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "myfleet",
		Subsystem: "ws",
		Name:      "overview_clients",
		Help:      "Connected overview websocket clients.",
	})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		otpSent,
		fleetMutations,
		payments,
		overviewClients,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		c.Next()
		httpInFlight.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func OTPRequested(result string) { otpSent.WithLabelValues(result).Inc() }

func PaymentWebhook(status string) { payments.WithLabelValues(status).Inc() }

func OverviewClients(delta float64) { overviewClients.Add(delta) }

func FleetMutated() { fleetMutations.Inc() }
