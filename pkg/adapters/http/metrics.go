package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	Requests            *prometheus.CounterVec
	Duration            *prometheus.HistogramVec
	RejectedConnections *prometheus.CounterVec
	HistoryTransitions  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weave_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RejectedConnections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_connections_rejected_total",
				Help: "Edges refused by the connectivity validator",
			},
			[]string{"reason"},
		),
		HistoryTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_history_transitions_total",
				Help: "Undo and redo requests by outcome",
			},
			[]string{"op", "applied"},
		),
	}
	reg.MustRegister(m.Requests, m.Duration, m.RejectedConnections, m.HistoryTransitions)
	return m
}

// instrument records count and latency per chi route pattern.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.Duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
