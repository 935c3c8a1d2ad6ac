package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	parseDuration  prom.Histogram
	parseOutcome   *prom.CounterVec
	violations     *prom.CounterVec
	bundleDuration prom.Histogram
	bundleResults  *prom.CounterVec
	httpDuration   *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.parseDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "aliasdoc",
			Name:      "parse_duration_seconds",
			Help:      "Duration of document parse and validation",
			Buckets:   prom.DefBuckets,
		})
		pr.parseOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "aliasdoc",
			Name:      "parse_outcomes_total",
			Help:      "Document parse outcomes",
		}, []string{"outcome"})
		pr.violations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "aliasdoc",
			Name:      "integrity_violations_total",
			Help:      "Integrity violations found in documents by kind",
		}, []string{"kind"})
		pr.bundleDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "aliasdoc",
			Name:      "bundle_duration_seconds",
			Help:      "Duration of bundle archive creation",
			Buckets:   prom.DefBuckets,
		})
		pr.bundleResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "aliasdoc",
			Name:      "bundle_results_total",
			Help:      "Bundle results by success/failure",
		}, []string{"result"})
		pr.httpDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "aliasdoc",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route and status",
			Buckets:   prom.DefBuckets,
		}, []string{"route", "status"})
		reg.MustRegister(pr.parseDuration, pr.parseOutcome, pr.violations, pr.bundleDuration, pr.bundleResults, pr.httpDuration)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveParseDuration(d time.Duration) {
	if p == nil || p.parseDuration == nil {
		return
	}
	p.parseDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncParseOutcome(outcome OutcomeLabel) {
	if p == nil || p.parseOutcome == nil {
		return
	}
	p.parseOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddViolations(kind string, n int) {
	if p == nil || p.violations == nil || n <= 0 {
		return
	}
	p.violations.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveBundleDuration(d time.Duration) {
	if p == nil || p.bundleDuration == nil {
		return
	}
	p.bundleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBundleResult(success bool) {
	if p == nil || p.bundleResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.bundleResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route string, status int, d time.Duration) {
	if p == nil || p.httpDuration == nil {
		return
	}
	p.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
