// Package metrics registers the Prometheus collectors of the booking engine
// and exposes them over HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	bookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_transaction_duration_seconds",
			Help:    "Duration of booking transactions",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	refundedAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_refunded_amount_total",
			Help: "Sum of refunds issued by cancellations",
		},
	)

	seatGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_generation_total",
			Help: "Seat generation requests by outcome",
		},
		[]string{"status"},
	)

	journeyTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journey_status_transitions_total",
			Help: "Journey status changes applied by the scheduler",
		},
		[]string{"to"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// TrackBooking counts one booking operation (book, confirm, cancel) with
// its outcome and records how long it took.
func TrackBooking(operation, outcome string, took time.Duration) {
	bookingOperations.WithLabelValues(operation, outcome).Inc()
	bookingDuration.WithLabelValues(operation).Observe(took.Seconds())
}

// TrackRefund adds amount to the refunded total.
func TrackRefund(amount float64) {
	if amount > 0 {
		refundedAmount.Add(amount)
	}
}

// TrackSeatGeneration counts a seat generation outcome.
func TrackSeatGeneration(status string) {
	seatGenerations.WithLabelValues(status).Inc()
}

// TrackJourneyTransition counts a journey status change.
func TrackJourneyTransition(to string) {
	journeyTransitions.WithLabelValues(to).Inc()
}

// Middleware records request counts and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
