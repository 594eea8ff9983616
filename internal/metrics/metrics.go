// Package metrics exposes Prometheus collectors for the conversion engine
// and the HTTP server.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lichviet/amlich-api/internal/calendar"
	"github.com/lichviet/amlich-api/internal/recurrence"
)

const namespace = "amlich"

// Conversion result labels.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultOutOfRange  = "out_of_range"
	ResultComputation = "computation_error"
	ResultError       = "error"
)

// Metrics holds the collectors on a private registry so tests can create
// as many as they like.
type Metrics struct {
	registry        *prometheus.Registry
	conversions     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	occurrences     prometheus.Histogram
}

// New registers the collectors. conv may be nil; when set, its year cache
// size is exported as a gauge.
func New(conv *calendar.Converter) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Calendar conversions by operation and result.",
		}, []string{"operation", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		occurrences: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_occurrences",
			Help:      "Number of dates returned per occurrence expansion.",
			Buckets:   []float64{0, 1, 2, 5, 12, 25, 50, 100, 400},
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.conversions,
		m.requestDuration,
		m.occurrences,
	)
	if conv != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "year_cache_entries",
			Help:      "Lunar years currently held in the converter cache.",
		}, func() float64 { return float64(conv.CacheLen()) }))
	}
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveConversion counts one conversion. err is classified by the
// calendar sentinels.
func (m *Metrics) ObserveConversion(operation string, err error) {
	m.conversions.WithLabelValues(operation, Result(err)).Inc()
}

// ObserveRequest records the latency of one HTTP request. route should be
// the matched pattern, not the raw path, to keep cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveOccurrences records the size of one expansion.
func (m *Metrics) ObserveOccurrences(n int) {
	m.occurrences.Observe(float64(n))
}

// Result maps an error to its result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, calendar.ErrInvalidLunarDate), errors.Is(err, recurrence.ErrInvalidRule):
		return ResultInvalid
	case errors.Is(err, calendar.ErrOutOfRange):
		return ResultOutOfRange
	case errors.Is(err, calendar.ErrComputation):
		return ResultComputation
	default:
		return ResultError
	}
}
