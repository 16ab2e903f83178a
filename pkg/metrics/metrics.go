// Package metrics exposes Prometheus metrics for scoring, platform fetches
// and the HTTP API. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devscore"

// Fetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeCooldown = "cooldown"
)

var scoreBuckets = []float64{100, 200, 260, 340, 440, 600, 800, 1000, 1500}

// Recorder owns a dedicated registry so only devscore metrics are exported.
type Recorder struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	scores        *prometheus.CounterVec
	scoreValue    prometheus.Histogram
	reviews       *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a recorder on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetches: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "fetches_total",
			Help:      "Platform profile fetches by outcome",
		}, []string{"platform", "outcome"}),
		fetchDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "fetch_duration_seconds",
			Help:      "Platform profile fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
		scores: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "score",
			Name:      "results_total",
			Help:      "Scored profiles by label and cache use",
		}, []string{"label", "cached"}),
		scoreValue: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "score",
			Name:      "value",
			Help:      "Distribution of computed scores",
			Buckets:   scoreBuckets,
		}),
		reviews: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "requests_total",
			Help:      "Review requests by outcome",
		}, []string{"outcome"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by endpoint, method and status code",
		}, []string{"endpoint", "method", "code"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one platform fetch.
func (r *Recorder) ObserveFetch(platform, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(platform, outcome).Inc()
	r.fetchDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// ObserveScore records a scored profile.
func (r *Recorder) ObserveScore(label string, value float64, cached bool) {
	if r == nil {
		return
	}
	r.scores.WithLabelValues(label, strconv.FormatBool(cached)).Inc()
	if !cached {
		r.scoreValue.Observe(value)
	}
}

// ObserveReview records the outcome of a review request.
func (r *Recorder) ObserveReview(outcome string) {
	if r == nil {
		return
	}
	r.reviews.WithLabelValues(outcome).Inc()
}

// Middleware records count and latency of the requests served by next.
func (r *Recorder) Middleware(endpoint string, next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, req)

		r.httpRequests.WithLabelValues(endpoint, req.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		r.httpRequestDuration.WithLabelValues(endpoint, req.Method).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
