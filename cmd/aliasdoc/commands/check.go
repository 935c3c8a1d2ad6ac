package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/aliasdoc/internal/document"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/metrics"
	"git.home.luguber.info/inful/aliasdoc/internal/watch"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Path   string `arg:"" help:"Markdown file to check" type:"path"`
	Format string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Watch  bool   `short:"w" help:"Re-check whenever the file changes"`
}

// Run validates the document. A failing document exits with the validation code.
func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.load(g)
	if err != nil {
		return err
	}
	parser := newParser(cfg, logger, metrics.NoopRecorder{})

	if !c.Watch {
		return c.check(g.stdout(), parser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.watch(ctx, g, parser, watch.WithLogger(logger))
}

func (c *CheckCmd) watch(ctx context.Context, g *Global, parser *document.Parser, opts ...watch.Option) error {
	w, err := watch.New(c.Path, opts...)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "watch document").
			WithContext("path", c.Path).Build()
	}
	adapter := errors.NewCLIErrorAdapter(false, nil)
	report := func() {
		if err := c.check(g.stdout(), parser); err != nil && !errors.HasCategory(err, errors.CategoryValidation) {
			fmt.Fprintln(g.stderr(), adapter.FormatError(err))
		}
	}
	report()
	return w.Run(ctx, report)
}

func (c *CheckCmd) check(out io.Writer, parser *document.Parser) error {
	data, err := readDocument(c.Path)
	if err != nil {
		return err
	}
	res := parser.Parse(data)
	if c.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "encode result").Build()
		}
	} else {
		writeReport(out, c.Path, res, parser, data)
	}
	return res.Err()
}

func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-selected input file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("document not found").WithContext("path", path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read document").
			WithContext("path", path).Build()
	}
	return data, nil
}

// writeReport prints a human readable summary of res. parser lists the images
// of a failing document so the summary can say how many carry an alias.
func writeReport(out io.Writer, path string, res document.Result, parser *document.Parser, data []byte) {
	if res.Pass {
		fmt.Fprintf(out, "PASS %s: %d aliased image(s)\n", path, len(res.AliasLinkMapping))
		for _, alias := range sortedKeys(res.AliasLinkMapping) {
			fmt.Fprintf(out, "  %s -> %s\n", alias, res.AliasLinkMapping[alias])
		}
		return
	}

	if res.Errors == nil || res.Errors.Internal != "" {
		fmt.Fprintf(out, "FAIL %s\n", path)
		if res.Errors != nil {
			fmt.Fprintf(out, "  internal error: %s\n", res.Errors.Internal)
		}
		return
	}

	refs := parser.Images(data)
	aliased := 0
	for _, ref := range refs {
		if ref.Alias != "" {
			aliased++
		}
	}
	fmt.Fprintf(out, "FAIL %s: %d of %d image(s) aliased\n", path, aliased, len(refs))
	for _, link := range sortedKeys(res.Errors.ImageLink) {
		if v := res.Errors.ImageLink[link]; !v.Orphaned {
			fmt.Fprintf(out, "  link %s: used with aliases %s\n", link, strings.Join(v.Aliases, ", "))
		}
	}
	for _, alias := range sortedKeys(res.Errors.ImageAlias) {
		fmt.Fprintf(out, "  alias %s: refers to links %s\n", alias, strings.Join(res.Errors.ImageAlias[alias], ", "))
	}
	if orphans := res.Errors.OrphanedLinks(); len(orphans) > 0 {
		fmt.Fprintf(out, "  no alias: %s\n", strings.Join(orphans, ", "))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
