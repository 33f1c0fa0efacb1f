package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// AllocationTicks counts scheduler ticks by outcome
	AllocationTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_ticks_total",
			Help: "Total number of allocation scheduler ticks",
		},
		[]string{"outcome"},
	)

	// OrdersAllocated counts orders processed by an allocation pass
	OrdersAllocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_allocated_total",
			Help: "Orders processed by the allocation scheduler",
		},
		[]string{"result"},
	)

	// InventoryLevel tracks on-hand quantity per product
	InventoryLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inventory_on_hand",
			Help: "Current on-hand quantity per product",
		},
		[]string{"product_id"},
	)

	// CallbacksTotal counts status-callback deliveries by outcome
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_callbacks_total",
			Help: "Status-change callback deliveries",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState tracks callback breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callback_circuit_breaker_state",
			Help: "Callback circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)
)

// PrometheusMiddleware creates a Gin middleware for automatic metrics collection
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(duration)
	}
}
