package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDurationHistogram records request duration in seconds
	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	BillsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_bills_created_total",
			Help: "Bills committed",
		},
	)

	BillFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_bill_failures_total",
			Help: "Bill creation attempts rejected or rolled back, by reason",
		},
		[]string{"reason"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifications_total",
			Help: "Invoice notifications by result (queued, queue_failed, sent, retried, failed)",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDurationHistogram,
			BillsCreated,
			BillFailures,
			Notifications,
		)
	})
}

func ObserveBillCreated() {
	BillsCreated.Inc()
}

func ObserveBillFailure(reason string) {
	BillFailures.WithLabelValues(reason).Inc()
}

func ObserveNotification(result string) {
	Notifications.WithLabelValues(result).Inc()
}

// Middleware records request count and latency per route.
func Middleware(serviceName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		path := c.Route().Path
		statusStr := strconv.Itoa(status)

		RequestCounter.WithLabelValues(serviceName, c.Method(), path, statusStr).Inc()
		RequestDurationHistogram.WithLabelValues(serviceName, c.Method(), path, statusStr).
			Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler exposes the default registry for scraping.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
