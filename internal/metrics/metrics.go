// Package metrics exposes Prometheus metrics for the HTTP API.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alevsk/mpd-scope/internal/logger"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Metrics defines the Prometheus metrics of the API server.
type Metrics struct {
	Registry *prometheus.Registry

	requests      *prometheus.CounterVec
	requestsTimer *prometheus.HistogramVec
	analyses      *prometheus.CounterVec
	findings      *prometheus.CounterVec
	segments      *prometheus.CounterVec
}

// Result label values
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

var requestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NewMetrics registers every metric on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{Registry: registry}

	m.requests = newCounter(registry, namespace, "requests_total",
		"Count of API requests by route and status code.",
		[]string{"route", "code"})
	m.requestsTimer = newHistogramVec(registry, namespace, "request_duration_seconds",
		"Duration of API requests by route.",
		[]string{"route"}, requestBuckets)
	m.analyses = newCounter(registry, namespace, "analyses_total",
		"Count of analyses by operation and result.",
		[]string{"operation", "result"})
	m.findings = newCounter(registry, namespace, "findings_total",
		"Count of reported findings by operation and severity.",
		[]string{"operation", "severity"})
	m.segments = newCounter(registry, namespace, "segments_checked_total",
		"Count of segments checked against the runtime policy, by outcome.",
		[]string{"outcome"})

	return m
}

func newCounter(registry *prometheus.Registry, namespace, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(registry *prometheus.Registry, namespace, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

// RecordRequest counts a served request and observes its duration.
func (m *Metrics) RecordRequest(route string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestsTimer.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordResult counts an analysis and the findings it reported.
func (m *Metrics) RecordResult(operation string, res *types.Result) {
	if res == nil || !res.Success {
		m.analyses.WithLabelValues(operation, resultFailure).Inc()
		return
	}
	m.analyses.WithLabelValues(operation, resultSuccess).Inc()
	for _, f := range res.Findings() {
		m.findings.WithLabelValues(operation, f.Severity.String()).Inc()
	}
}

// RecordSegments counts checked segments split by whether they broke a rule.
func (m *Metrics) RecordSegments(total, violating int) {
	m.segments.WithLabelValues("ok").Add(float64(total - violating))
	m.segments.WithLabelValues("violating").Add(float64(violating))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		ErrorLog:            loggerForPrometheus{},
		MaxRequestsInFlight: 5,
	})
}

type loggerForPrometheus struct{}

func (loggerForPrometheus) Println(v ...interface{}) {
	logger.Warn().Msg(fmt.Sprint(v...))
}
