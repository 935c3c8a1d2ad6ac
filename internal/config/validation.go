package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/retry"
)

// Validate checks the configuration and normalizes enumerations in place.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		problems = append(problems, "server.tls requires both cert_file and key_file")
	}

	level, err := logLevelNormalizer.NormalizeWithError(string(c.Logging.Level))
	if err != nil {
		problems = append(problems, "logging.level: "+err.Error())
	}
	c.Logging.Level = level
	format, err := logFormatNormalizer.NormalizeWithError(string(c.Logging.Format))
	if err != nil {
		problems = append(problems, "logging.format: "+err.Error())
	}
	c.Logging.Format = format

	if mode, err := retry.ParseBackoffMode(c.Notify.Backoff); err != nil {
		problems = append(problems, "notify.backoff: "+err.Error())
	} else {
		c.Notify.Backoff = string(mode)
	}
	if c.Notify.MaxRetries < 0 {
		problems = append(problems, "notify.max_retries must not be negative")
	}

	if c.Retention.Interval < 0 {
		problems = append(problems, "retention.interval must not be negative")
	}
	if c.Retention.MaxAge < 0 {
		problems = append(problems, "retention.max_age must not be negative")
	}
	if c.Retention.StagingMaxAge < 0 {
		problems = append(problems, "retention.staging_max_age must not be negative")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		problems = append(problems, fmt.Sprintf("metrics.path must start with '/', got %q", c.Metrics.Path))
	}

	if len(problems) > 0 {
		return errors.ConfigError("invalid configuration: " + strings.Join(problems, "; ")).
			WithContext("problems", problems).Build()
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
