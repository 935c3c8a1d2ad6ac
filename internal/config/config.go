// Package config loads the aliasdoc configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/retry"
)

// DefaultPath is used when no configuration path is given.
const DefaultPath = "aliasdoc.yaml"

// Config is the complete configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Markdown  MarkdownConfig  `yaml:"markdown"`
	Logging   LoggingConfig   `yaml:"logging"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Notify    NotifyConfig    `yaml:"notify"`
	Retention RetentionConfig `yaml:"retention"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	TLS             TLSConfig     `yaml:"tls"`
	StaticDir       string        `yaml:"static_dir"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether TLS is configured.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// PathsConfig names the image source and archive output directories.
type PathsConfig struct {
	ImageDir  string `yaml:"image_dir"`
	OutputDir string `yaml:"output_dir"`
}

// MarkdownConfig selects parser and renderer features.
type MarkdownConfig struct {
	GFM        bool `yaml:"gfm"`
	UnsafeHTML bool `yaml:"unsafe_html"`
	XHTML      bool `yaml:"xhtml"`
}

// LedgerConfig locates the bundle ledger. An empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig configures bundle events. An empty URL disables them.
type NotifyConfig struct {
	NATSURL string        `yaml:"nats_url"`
	Subject string        `yaml:"subject"`
	Stream  string        `yaml:"stream"`
	Timeout time.Duration `yaml:"timeout"`

	Backoff      string        `yaml:"backoff"`
	RetryInitial time.Duration `yaml:"retry_initial"`
	RetryMax     time.Duration `yaml:"retry_max"`
	MaxRetries   int           `yaml:"max_retries"`
}

// RetryPolicy builds the publish retry policy. Invalid fields fall back to
// retry defaults; Validate reports them.
func (n NotifyConfig) RetryPolicy() retry.Policy {
	mode, _ := retry.ParseBackoffMode(n.Backoff)
	return retry.NewPolicy(mode, n.RetryInitial, n.RetryMax, n.MaxRetries)
}

// RetentionConfig controls sweeps of the output directory.
// A zero interval disables sweeping; a zero max_age keeps archives.
type RetentionConfig struct {
	Interval      time.Duration `yaml:"interval"`
	MaxAge        time.Duration `yaml:"max_age"`
	StagingMaxAge time.Duration `yaml:"staging_max_age"`
}

// TelemetryConfig configures OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string            `yaml:"endpoint"`
	Insecure    bool              `yaml:"insecure"`
	ServiceName string            `yaml:"service_name"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

// MetricsConfig exposes Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads the configuration at path on top of Default. An empty path
// falls back to DefaultPath when that file exists, and to pure defaults
// otherwise. Environment files are loaded first and ${VAR} references in the
// file are expanded.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			applyEnv(cfg)
			return finish(cfg)
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read configuration file").
			WithContext("path", path).Build()
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "parse configuration file").
			WithContext("path", path).Build()
	}

	applyEnv(cfg)
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).Build()
	}

	example := Default()
	example.Ledger.Path = "./output/ledger.db"
	example.Notify.NATSURL = "${NATS_URL}"
	example.Telemetry.Endpoint = "${OTEL_EXPORTER_OTLP_ENDPOINT}"

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).Build()
	}
	return nil
}
