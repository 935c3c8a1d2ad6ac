package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/retry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliasdoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv("ALIASDOC_TEST_NATS", "nats://broker:4222")
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
paths:
  image_dir: /srv/img
markdown:
  gfm: true
logging:
  level: DEBUG
  format: " json "
notify:
  nats_url: ${ALIASDOC_TEST_NATS}
retention:
  interval: 30m
  max_age: 48h
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, "/srv/img", cfg.Paths.ImageDir)
	assert.Equal(t, "./output", cfg.Paths.OutputDir)
	assert.True(t, cfg.Markdown.GFM)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, "nats://broker:4222", cfg.Notify.NATSURL)
	assert.Equal(t, "aliasdoc.bundles", cfg.Notify.Subject)
	assert.Equal(t, 30*time.Minute, cfg.Retention.Interval)
	assert.Equal(t, 48*time.Hour, cfg.Retention.MaxAge)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SSL_CERT_PATH", "")
	t.Setenv("SSL_KEY_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPicksUpDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPath), []byte("server:\n  port: 4100\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4100, cfg.Server.Port)
}

func TestLoadTLSFromEnvironment(t *testing.T) {
	t.Setenv("SSL_CERT_PATH", "/certs/cert.pem")
	t.Setenv("SSL_KEY_PATH", "/certs/key.pem")

	cfg, err := Load(writeConfig(t, "server:\n  port: 4443\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Server.TLS.Enabled())
	assert.Equal(t, "/certs/cert.pem", cfg.Server.TLS.CertFile)
	assert.Equal(t, "/certs/key.pem", cfg.Server.TLS.KeyFile)
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ALIASDOC_TEST_IMG=/from/envfile\nALIASDOC_TEST_OUT=/from/envfile\n"), 0o600))
	t.Setenv("ALIASDOC_TEST_OUT", "/from/process")
	t.Setenv("ALIASDOC_TEST_IMG", "")
	require.NoError(t, os.Unsetenv("ALIASDOC_TEST_IMG"))

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  image_dir: ${ALIASDOC_TEST_IMG}\n  output_dir: ${ALIASDOC_TEST_OUT}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/envfile", cfg.Paths.ImageDir)
	assert.Equal(t, "/from/process", cfg.Paths.OutputDir)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "bad yaml", content: "server: [\n"},
		{name: "port out of range", content: "server:\n  port: 70000\n"},
		{name: "half tls", content: "server:\n  tls:\n    cert_file: c.pem\n"},
		{name: "unknown level", content: "logging:\n  level: loud\n"},
		{name: "negative retention", content: "retention:\n  max_age: -1h\n"},
		{name: "relative metrics path", content: "metrics:\n  path: metrics\n"},
		{name: "unknown backoff", content: "notify:\n  backoff: sometimes\n"},
		{name: "negative retries", content: "notify:\n  max_retries: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SSL_CERT_PATH", "")
			t.Setenv("SSL_KEY_PATH", "")
			path := filepath.Join(t.TempDir(), "absent.yaml")
			if !tt.missing {
				path = writeConfig(t, tt.content)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig), "got %v", err)
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliasdoc.yaml")

	require.NoError(t, Init(path, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "image_dir: ./img")
	assert.Contains(t, string(data), "${NATS_URL}")

	err = Init(path, false)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	require.NoError(t, Init(path, true))

	t.Setenv("NATS_URL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Notify.NATSURL)
	assert.Equal(t, "./output/ledger.db", cfg.Ledger.Path)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention.MaxAge)
}

func TestNormalizeLogging(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("WARNING"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("nonsense"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat(""))
	assert.Equal(t, slog.LevelDebug, LogLevelDebug.SlogLevel())
	assert.Equal(t, slog.LevelError, LogLevelError.SlogLevel())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: LogLevelWarn, Format: LogFormatJSON}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestNotifyRetryPolicy(t *testing.T) {
	p := Default().Notify.RetryPolicy()
	assert.Equal(t, retry.BackoffExponential, p.Mode)
	assert.Equal(t, 500*time.Millisecond, p.Initial)
	assert.Equal(t, 5*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)

	p = NotifyConfig{Backoff: "fixed", RetryInitial: time.Second, MaxRetries: 0}.RetryPolicy()
	assert.Equal(t, retry.BackoffFixed, p.Mode)
	assert.Equal(t, 0, p.MaxRetries)
}
