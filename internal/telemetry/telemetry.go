// Package telemetry exposes Prometheus collectors for the gatehouse router.
package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	proxyRequestsTotal          *prometheus.CounterVec
	proxyRequestDurationSeconds *prometheus.HistogramVec
	proxyUpstreamErrorsTotal    *prometheus.CounterVec
	spaFallbacksTotal           prometheus.Counter
	proxyInflightRequests       prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		proxyRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_proxy_requests_total",
				Help: "Total number of proxied requests, labeled by route, method and code.",
			},
			[]string{"route", "method", "code"},
		)

		proxyRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_proxy_request_duration_seconds",
				Help:    "Histogram of request latencies through the router, labeled by route and method.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60, 300},
			},
			[]string{"route", "method"},
		)

		proxyUpstreamErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_proxy_upstream_errors_total",
				Help: "Total number of failed upstream round trips, labeled by route.",
			},
			[]string{"route"},
		)

		spaFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_spa_fallbacks_total",
				Help: "Total number of requests answered with the SPA index fallback.",
			},
		)

		proxyInflightRequests = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_proxy_inflight_requests",
				Help: "Number of requests currently being served by the router.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records metrics for a completed request.
func ObserveRequest(route, method string, code int, duration time.Duration) {
	proxyRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	proxyRequestDurationSeconds.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveUpstreamError increments the upstream failure counter for a route.
func ObserveUpstreamError(route string) {
	proxyUpstreamErrorsTotal.WithLabelValues(route).Inc()
}

// ObserveSPAFallback increments the index fallback counter.
func ObserveSPAFallback() {
	spaFallbacksTotal.Inc()
}

// Middleware records request metrics for every request passing through the
// router. Handlers downstream report the matched route via SetRoute; requests
// that never match a route are labeled "unmatched".
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		proxyInflightRequests.Inc()
		defer proxyInflightRequests.Dec()

		label := &routeLabel{value: "unmatched"}
		ctx := context.WithValue(r.Context(), routeLabelKey{}, label)

		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(ctx))

		ObserveRequest(label.value, r.Method, ww.status, time.Since(start))
	})
}

// SetRoute records the matched route for the in-flight request. It is a
// no-op when Middleware is not installed.
func SetRoute(ctx context.Context, route string) {
	if label, ok := ctx.Value(routeLabelKey{}).(*routeLabel); ok {
		label.value = route
	}
}

type routeLabelKey struct{}

type routeLabel struct {
	value string
}

// statusRecorder wraps http.ResponseWriter to capture the status code. It
// forwards Flush and Hijack so streaming responses keep working through the
// middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rec.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}
