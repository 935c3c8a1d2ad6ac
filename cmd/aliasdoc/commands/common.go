// Package commands implements the aliasdoc CLI subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/aliasdoc/internal/config"
)

// Global carries process-wide state into subcommands.
type Global struct {
	Out io.Writer
	Err io.Writer
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) stderr() io.Writer {
	if g == nil || g.Err == nil {
		return os.Stderr
	}
	return g.Err
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults to ./aliasdoc.yaml when present)" env:"ALIASDOC_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check  CheckCmd  `cmd:"" help:"Validate image aliases in a Markdown document"`
	Render RenderCmd `cmd:"" help:"Render a valid Markdown document to HTML"`
	Bundle BundleCmd `cmd:"" help:"Validate a document and archive it with its images"`
	Serve  ServeCmd  `cmd:"" help:"Run the HTTP service"`
	Init   InitCmd   `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; sets up a default logger until a
// command loads its configuration.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// load reads the configuration and installs the configured logger.
func (c *CLI) load(g *Global) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, nil, err
	}
	if c.Verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	logger := cfg.Logging.NewLogger(g.stderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}
