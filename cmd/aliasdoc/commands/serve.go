package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/aliasdoc/internal/config"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/retention"
	"git.home.luguber.info/inful/aliasdoc/internal/server"
	"git.home.luguber.info/inful/aliasdoc/internal/telemetry"
	"git.home.luguber.info/inful/aliasdoc/internal/version"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port     int    `short:"p" help:"Port of the server (overrides server.port)"`
	ImageDir string `short:"d" name:"img-dir" help:"Directory for image content (overrides paths.image_dir)" type:"path"`
	OutDir   string `short:"o" name:"out-dir" help:"Directory for bundled archives (overrides paths.output_dir)" type:"path"`
}

// Run serves until interrupted.
func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.load(g)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.serve(ctx, cfg, logger)
}

func (s *ServeCmd) apply(cfg *config.Config) error {
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	if s.ImageDir != "" {
		cfg.Paths.ImageDir = s.ImageDir
	}
	if s.OutDir != "" {
		cfg.Paths.OutputDir = s.OutDir
	}
	return cfg.Validate()
}

func (s *ServeCmd) serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := s.apply(cfg); err != nil {
		return err
	}
	for _, dir := range []string{cfg.Paths.ImageDir, cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create directory").
				WithContext("path", dir).Build()
		}
	}

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version.Version,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "set up tracing").Build()
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", logfields.Error(err))
		}
	}()

	reg, recorder := newMetrics(cfg)
	parser := newParser(cfg, logger, recorder)
	bundler := newBundler(cfg, parser, logger, recorder)

	store, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	publisher := newPublisher(ctx, cfg, logger)
	defer func() { _ = publisher.Close() }()

	if cfg.Retention.Interval > 0 {
		sched, err := retention.NewScheduler(logger)
		if err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "create scheduler").Build()
		}
		sweeper := retention.NewSweeper(cfg.Paths.OutputDir, retention.Policy{
			ArchiveMaxAge: cfg.Retention.MaxAge,
			StagingMaxAge: cfg.Retention.StagingMaxAge,
		}, logger)
		if _, err := sched.ScheduleSweeps(ctx, sweeper, cfg.Retention.Interval); err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "schedule retention sweeps").Build()
		}
		sched.Start()
		defer func() { _ = sched.Stop() }()
	}

	srv := server.New(server.Options{
		Config:    cfg,
		Parser:    parser,
		Bundler:   bundler,
		Ledger:    store,
		Publisher: publisher,
		Recorder:  recorder,
		Registry:  reg,
		Logger:    logger,
	})
	return srv.Run(ctx)
}
