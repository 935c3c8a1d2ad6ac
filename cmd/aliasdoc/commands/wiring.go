package commands

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/config"
	"git.home.luguber.info/inful/aliasdoc/internal/document"
	"git.home.luguber.info/inful/aliasdoc/internal/ledger"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/markdown"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
	"git.home.luguber.info/inful/aliasdoc/internal/notify"
)

func markdownOptions(cfg *config.Config) markdown.Options {
	return markdown.Options{
		GFM:        cfg.Markdown.GFM,
		UnsafeHTML: cfg.Markdown.UnsafeHTML,
		XHTML:      cfg.Markdown.XHTML,
	}
}

func newParser(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) *document.Parser {
	return document.NewParser(
		document.WithMarkdownOptions(markdownOptions(cfg)),
		document.WithRecorder(recorder),
		document.WithLogger(logger),
	)
}

func newBundler(cfg *config.Config, parser *document.Parser, logger *slog.Logger, recorder metrics.Recorder) *bundle.Bundler {
	return bundle.New(cfg.Paths.ImageDir, cfg.Paths.OutputDir,
		bundle.WithLinkRewrite(parser.Markdown()),
		bundle.WithRecorder(recorder),
		bundle.WithLogger(logger),
	)
}

// openLedger returns nil when the ledger is disabled.
func openLedger(cfg *config.Config, logger *slog.Logger) (ledger.Store, error) {
	if cfg.Ledger.Path == "" {
		return nil, nil
	}
	store, err := ledger.NewSQLiteStore(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Bundle ledger opened", logfields.Path(cfg.Ledger.Path))
	return store, nil
}

// newPublisher connects to NATS when configured. An unreachable broker
// degrades to the no-op publisher.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) notify.Publisher {
	if cfg.Notify.NATSURL == "" {
		return notify.NoopPublisher{}
	}
	policy := cfg.Notify.RetryPolicy()
	p, err := notify.NewNATSPublisher(ctx, notify.NATSConfig{
		URL:     cfg.Notify.NATSURL,
		Subject: cfg.Notify.Subject,
		Stream:  cfg.Notify.Stream,
		Timeout: cfg.Notify.Timeout,
		Retry:   &policy,
	}, logger)
	if err != nil {
		logger.Warn("Bundle events disabled", logfields.Error(err))
		return notify.NoopPublisher{}
	}
	return p
}

// newMetrics returns a registry with process collectors and a recorder on
// it, or a no-op recorder when metrics are disabled.
func newMetrics(cfg *config.Config) (*prometheus.Registry, metrics.Recorder) {
	if !cfg.Metrics.Enabled {
		return nil, metrics.NoopRecorder{}
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewPrometheusRecorder(reg)
}
