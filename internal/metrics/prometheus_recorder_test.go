package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveParseDuration(15 * time.Millisecond)
	pr.IncParseOutcome(OutcomeFail)
	pr.AddViolations("orphan", 2)
	pr.AddViolations("link_conflict", 0)
	pr.ObserveBundleDuration(200 * time.Millisecond)
	pr.IncBundleResult(true)
	pr.ObserveHTTPRequest("/api/parse", http.StatusOK, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	require.True(t, names["aliasdoc_parse_outcomes_total"])
	require.True(t, names["aliasdoc_integrity_violations_total"])
	require.True(t, names["aliasdoc_bundle_results_total"])
	require.True(t, names["aliasdoc_http_request_duration_seconds"])
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.ObserveParseDuration(time.Second)
		pr.IncParseOutcome(OutcomePass)
		pr.IncBundleResult(false)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncParseOutcome(OutcomePass)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `aliasdoc_parse_outcomes_total{outcome="pass"} 1`)
}
