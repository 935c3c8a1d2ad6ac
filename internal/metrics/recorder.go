package metrics

import "time"

// OutcomeLabel enumerates document parse outcomes for counters.
type OutcomeLabel string

const (
	OutcomePass  OutcomeLabel = "pass"
	OutcomeFail  OutcomeLabel = "fail"
	OutcomeError OutcomeLabel = "error"
)

// Recorder defines observability hooks for parsing, bundling and the HTTP
// surface. Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveParseDuration(d time.Duration)
	IncParseOutcome(outcome OutcomeLabel)
	AddViolations(kind string, n int)
	ObserveBundleDuration(d time.Duration)
	IncBundleResult(success bool)
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveParseDuration(time.Duration) {}
func (NoopRecorder) IncParseOutcome(OutcomeLabel) {}
func (NoopRecorder) AddViolations(string, int) {}
func (NoopRecorder) ObserveBundleDuration(time.Duration) {}
func (NoopRecorder) IncBundleResult(bool) {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
