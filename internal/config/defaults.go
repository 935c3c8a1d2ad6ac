package config

import (
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/notify"
	"git.home.luguber.info/inful/aliasdoc/internal/retry"
)

const (
	defaultPort            = 4000
	defaultMaxBodyBytes    = 10 << 20
	defaultShutdownTimeout = 10 * time.Second
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            defaultPort,
			StaticDir:       "./dist",
			MaxBodyBytes:    defaultMaxBodyBytes,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Paths: PathsConfig{
			ImageDir:  "./img",
			OutputDir: "./output",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Notify: NotifyConfig{
			Subject: notify.DefaultSubject,
			Stream:  notify.DefaultStream,
			Timeout: 5 * time.Second,

			Backoff:      string(retry.BackoffExponential),
			RetryInitial: 500 * time.Millisecond,
			RetryMax:     5 * time.Second,
			MaxRetries:   2,
		},
		Retention: RetentionConfig{
			Interval:      time.Hour,
			MaxAge:        7 * 24 * time.Hour,
			StagingMaxAge: time.Hour,
		},
		Telemetry: TelemetryConfig{
			Insecure:    true,
			ServiceName: "aliasdoc",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyDefaults fills values a config file cleared explicitly.
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if cfg.Paths.ImageDir == "" {
		cfg.Paths.ImageDir = d.Paths.ImageDir
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = d.Paths.OutputDir
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = d.Notify.Subject
	}
	if cfg.Notify.Stream == "" {
		cfg.Notify.Stream = d.Notify.Stream
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = d.Notify.Timeout
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = d.Telemetry.ServiceName
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = d.Metrics.Path
	}
}
