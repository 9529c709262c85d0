// Package metrics provides Prometheus instrumentation for the paper trading
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersTotal counts order decisions, partitioned by side and terminal status.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrade_orders_total",
		Help: "Total number of order decisions",
	}, []string{"side", "status"})

	// OrderRejections counts business rejections by reason.
	OrderRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrade_order_rejections_total",
		Help: "Orders rejected, by reason",
	}, []string{"reason"})

	// OrderLatency tracks end-to-end order placement latency.
	OrderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "papertrade_order_latency_seconds",
		Help:    "Order placement latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	// PriceFetchErrors counts failed price oracle lookups by source.
	PriceFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrade_price_fetch_errors_total",
		Help: "Failed price oracle lookups",
	}, []string{"source"})

	// AccountResets counts account resets.
	AccountResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrade_account_resets_total",
		Help: "Accounts reset to starting state",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papertrade_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrade_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "papertrade_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the chi route pattern for the path label so userIDs in the
		// URL don't explode label cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
