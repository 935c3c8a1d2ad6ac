package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/config"
	"git.home.luguber.info/inful/aliasdoc/internal/document"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Paths.ImageDir = filepath.Join(root, "img")
	cfg.Paths.OutputDir = filepath.Join(root, "output")
	cfg.Server.StaticDir = filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(cfg.Paths.ImageDir, 0o750))
	require.NoError(t, os.MkdirAll(cfg.Server.StaticDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.ImageDir, "a.png"), []byte("PNG"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.StaticDir, "index.html"), []byte("<h1>editor</h1>"), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	parser := document.NewParser(document.WithRecorder(recorder), document.WithLogger(logger))

	s := New(Options{
		Config:   cfg,
		Parser:   parser,
		Bundler:  bundle.New(cfg.Paths.ImageDir, cfg.Paths.OutputDir, bundle.WithRecorder(recorder), bundle.WithLogger(logger)),
		Recorder: recorder,
		Registry: reg,
		Logger:   logger,
	})
	return s, cfg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ledger":"disabled"`)
	assert.Contains(t, w.Body.String(), `"notify":"disabled"`)

	w = get(t, h, "/img/a.png")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PNG", w.Body.String())

	w = get(t, h, "/img/../config.yaml")
	assert.NotEqual(t, http.StatusOK, w.Code)

	w = get(t, h, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "editor")

	w = get(t, h, "/api/bundles")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestParseThenMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader("![a](/img/a.png|p1)"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `aliasdoc_parse_outcomes_total{outcome="pass"} 1`)
	assert.Contains(t, w.Body.String(), `route="/api/parse"`)
}

func TestMetricsDisabled(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.Server.StaticDir = filepath.Join(root, "missing")
	s := New(Options{Config: cfg, Registry: prometheus.NewRegistry(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // readiness poll
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
