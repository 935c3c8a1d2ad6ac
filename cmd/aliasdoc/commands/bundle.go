package commands

import (
	"context"
	"encoding/json"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/ledger"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
	"git.home.luguber.info/inful/aliasdoc/internal/notify"
	"git.home.luguber.info/inful/aliasdoc/internal/server/responses"
)

// BundleCmd implements the 'bundle' command.
type BundleCmd struct {
	Path     string   `arg:"" help:"Markdown file to bundle" type:"path"`
	Title    string   `short:"t" help:"Document title (defaults to the front matter title)"`
	Tags     []string `name:"tag" help:"Tag to record in meta.json (repeatable)"`
	ImageDir string   `short:"d" name:"img-dir" help:"Directory images are read from" type:"path"`
	OutDir   string   `short:"o" name:"out-dir" help:"Directory archives are written to" type:"path"`
}

// Run validates and bundles the document, printing the bundle identity as JSON.
func (b *BundleCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.load(g)
	if err != nil {
		return err
	}
	if b.ImageDir != "" {
		cfg.Paths.ImageDir = b.ImageDir
	}
	if b.OutDir != "" {
		cfg.Paths.OutputDir = b.OutDir
	}

	data, err := readDocument(b.Path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	parser := newParser(cfg, logger, metrics.NoopRecorder{})
	bundler := newBundler(cfg, parser, logger, metrics.NoopRecorder{})

	res, parsed, err := bundler.BundleDocument(ctx, parser, bundle.Request{
		RawDocument: string(data),
		Meta:        bundle.Meta{Title: b.Title, Tags: b.Tags},
	})
	if err != nil {
		if !parsed.Pass {
			writeReport(g.stderr(), b.Path, parsed, parser, data)
		}
		return err
	}

	store, err := openLedger(cfg, logger)
	if err != nil {
		logger.Error("Bundle ledger unavailable", logfields.Error(err))
	} else if store != nil {
		if err := store.Append(ctx, ledger.FromBundle(res, b.Tags)); err != nil {
			logger.Error("Failed to record bundle", logfields.BundleID(res.ID), logfields.Error(err))
		}
		_ = store.Close()
	}

	publisher := newPublisher(ctx, cfg, logger)
	if err := publisher.PublishBundleCreated(ctx, notify.NewBundleCreated(res, b.Tags)); err != nil {
		logger.Warn("Failed to publish bundle event", logfields.BundleID(res.ID), logfields.Error(err))
	}
	_ = publisher.Close()

	enc := json.NewEncoder(g.stdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(responses.NewBundleResponse(res)); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode bundle result").Build()
	}
	return nil
}
