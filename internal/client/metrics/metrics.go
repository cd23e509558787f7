// Package metrics records catalog client activity: backend requests and
// query cache outcomes. Collectors live on their own registry so several
// clients (and tests) never collide on the default one.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Cache outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheDedup = "dedup"
	CacheError = "error"
)

// Recorder is what the API client and query cache report to.
type Recorder interface {
	RecordRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordCache(outcome string)
}

type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheTotal      *prometheus.CounterVec
}

// New builds the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog",
				Name:      "http_requests_total",
				Help:      "Total number of backend HTTP requests.",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "catalog",
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of backend HTTP request durations.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "endpoint", "status"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog",
				Name:      "query_cache_total",
				Help:      "Query cache reads by outcome.",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.cacheTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest counts one backend call. statusCode 0 means the request never
// got a response.
func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	m.requestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.requestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func (m *Metrics) RecordCache(outcome string) {
	m.cacheTotal.WithLabelValues(outcome).Inc()
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode == 0:
		return "transport"
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Snapshot is a flat view of the counters for display.
type Snapshot struct {
	Requests map[string]float64
	Cache    map[string]float64
}

// Snapshot gathers the registry. Request counts are keyed by
// "METHOD endpoint status".
func (m *Metrics) Snapshot() (Snapshot, error) {
	s := Snapshot{Requests: map[string]float64{}, Cache: map[string]float64{}}

	families, err := m.registry.Gather()
	if err != nil {
		return s, err
	}

	for _, f := range families {
		switch f.GetName() {
		case "catalog_http_requests_total":
			for _, metric := range f.GetMetric() {
				l := labels(metric)
				s.Requests[l["method"]+" "+l["endpoint"]+" "+l["status"]] += metric.GetCounter().GetValue()
			}
		case "catalog_query_cache_total":
			for _, metric := range f.GetMetric() {
				s.Cache[labels(metric)["outcome"]] += metric.GetCounter().GetValue()
			}
		}
	}
	return s, nil
}

// HitRatio is hits over all cache reads, 0 when there were none.
func (s Snapshot) HitRatio() float64 {
	total := s.Cache[CacheHit] + s.Cache[CacheMiss] + s.Cache[CacheDedup]
	if total == 0 {
		return 0
	}
	return s.Cache[CacheHit] / total
}

func (s Snapshot) String() string {
	return "requests=" + strconv.FormatFloat(sum(s.Requests), 'f', 0, 64) +
		" hits=" + strconv.FormatFloat(s.Cache[CacheHit], 'f', 0, 64) +
		" misses=" + strconv.FormatFloat(s.Cache[CacheMiss], 'f', 0, 64) +
		" dedup=" + strconv.FormatFloat(s.Cache[CacheDedup], 'f', 0, 64) +
		" errors=" + strconv.FormatFloat(s.Cache[CacheError], 'f', 0, 64)
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func sum(m map[string]float64) float64 {
	var total float64
	for _, v := range m {
		total += v
	}
	return total
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordCache(string)                                {}
