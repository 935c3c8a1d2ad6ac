// Package server assembles the aliasdoc HTTP service.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/config"
	"git.home.luguber.info/inful/aliasdoc/internal/document"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/ledger"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
	"git.home.luguber.info/inful/aliasdoc/internal/notify"
	"git.home.luguber.info/inful/aliasdoc/internal/server/handlers"
	"git.home.luguber.info/inful/aliasdoc/internal/server/middleware"
)

// Options are the collaborators of a Server. Ledger, Publisher and Registry
// are optional.
type Options struct {
	Config    *config.Config
	Parser    *document.Parser
	Bundler   *bundle.Bundler
	Ledger    ledger.Store
	Publisher notify.Publisher
	Recorder  metrics.Recorder
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

// Server is the HTTP service.
type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
	logger *slog.Logger
}

// New builds the router and the underlying http.Server.
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, router: chi.NewRouter(), logger: logger}
	s.setupRoutes(opts)

	s.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           otelhttp.NewHandler(s.router, "aliasdoc.http"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return s
}

func (s *Server) setupRoutes(opts Options) {
	adapter := errors.NewHTTPErrorAdapter(s.logger)

	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Chain(s.logger, adapter, opts.Recorder))

	api := handlers.NewAPIHandlers(handlers.Deps{
		Parser:       opts.Parser,
		Bundler:      opts.Bundler,
		Ledger:       opts.Ledger,
		Publisher:    opts.Publisher,
		Logger:       s.logger,
		MaxBodyBytes: s.cfg.Server.MaxBodyBytes,
	})
	_, noop := opts.Publisher.(notify.NoopPublisher)
	monitoring := handlers.NewMonitoringHandlers(time.Now(), opts.Ledger != nil, opts.Publisher != nil && !noop)

	s.router.Get("/health", monitoring.HandleHealthCheck)
	if s.cfg.Metrics.Enabled && opts.Registry != nil {
		s.router.Handle(s.cfg.Metrics.Path, metrics.HTTPHandler(opts.Registry))
	}

	s.router.Post("/api/parse", api.HandleParse)
	s.router.Get("/api/bundles", api.HandleListBundles)
	s.router.Get("/api/bundles/{id}", api.HandleGetBundle)
	s.router.Post("/bundle_document", api.HandleBundle)

	if dir := s.cfg.Paths.ImageDir; dir != "" {
		s.router.Handle("/img/*", http.StripPrefix("/img/", http.FileServer(http.Dir(dir))))
	}
	if dir := s.cfg.Server.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			s.router.Handle("/*", http.FileServer(http.Dir(dir)))
		}
	}
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Run serves until ctx is canceled, then shuts down gracefully.
// HTTPS is used when TLS files are configured.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "listen").
			WithContext("addr", s.server.Addr).Build()
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	tls := s.cfg.Server.TLS
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls.Enabled() {
			err = s.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = s.server.Serve(ln)
		}
		errCh <- err
	}()

	s.logger.Info("HTTP server listening",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("tls", tls.Enabled()),
		logfields.Path(s.cfg.Paths.OutputDir))

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapError(err, errors.CategoryRuntime, "serve HTTP").Build()
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "shutdown HTTP server").Build()
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapError(err, errors.CategoryRuntime, "serve HTTP").Build()
	}
	return nil
}
