package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	ordersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		},
	)

	ordersStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_status_changed_total",
			Help: "Total number of order status changes",
		},
		[]string{"from_status", "to_status"},
	)

	deliveryQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_quotes_total",
			Help: "Total number of delivery fee quotes",
		},
		[]string{"outcome"},
	)

	geocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Total number of geocoding provider requests",
		},
		[]string{"outcome"},
	)

	routingFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "routing_fallbacks_total",
			Help: "Total number of great-circle fallbacks after routing failures",
		},
	)

	paymentIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Total number of payment intents by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "External provider request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordOrderCreated records an order creation
func RecordOrderCreated() {
	ordersCreated.Inc()
}

// RecordOrderStatusChange records an order status change
func RecordOrderStatusChange(fromStatus, toStatus string) {
	ordersStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordDeliveryQuote records a delivery quote outcome
// (priced, outage_flat, out_of_range, address_not_found, unavailable, defect)
func RecordDeliveryQuote(outcome string) {
	deliveryQuotes.WithLabelValues(outcome).Inc()
}

// RecordGeocodeRequest records a geocoding request outcome (ok, no_match, error)
func RecordGeocodeRequest(outcome string) {
	geocodeRequests.WithLabelValues(outcome).Inc()
}

// RecordRoutingFallback records a great-circle fallback
func RecordRoutingFallback() {
	routingFallbacks.Inc()
}

// RecordPaymentIntent records a payment intent operation
func RecordPaymentIntent(operation, outcome string) {
	paymentIntents.WithLabelValues(operation, outcome).Inc()
}

// RecordProviderRequest records an external provider call duration
func RecordProviderRequest(provider string, duration time.Duration) {
	providerRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
