package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Path   string `arg:"" help:"Markdown file to render" type:"path"`
	Output string `short:"o" help:"Write HTML to this file instead of stdout" type:"path"`
}

// Run renders the document when it passes validation.
func (r *RenderCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.load(g)
	if err != nil {
		return err
	}
	data, err := readDocument(r.Path)
	if err != nil {
		return err
	}

	parser := newParser(cfg, logger, metrics.NoopRecorder{})
	res := parser.Parse(data)
	if !res.Pass {
		writeReport(g.stderr(), r.Path, res, parser, data)
		return res.Err()
	}

	if r.Output == "" {
		_, err := fmt.Fprint(g.stdout(), res.HTML)
		return err
	}
	if err := os.WriteFile(r.Output, []byte(res.HTML), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write HTML").
			WithContext("path", r.Output).Build()
	}
	logger.Info("Rendered document", "path", r.Output)
	return nil
}
