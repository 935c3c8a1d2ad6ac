package markdown

import (
	"io"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Options controls the goldmark instance behind a Parser.
type Options struct {
	// GFM enables tables, strikethrough, autolinks and task lists.
	GFM bool
	// UnsafeHTML passes raw HTML through instead of omitting it.
	UnsafeHTML bool
	// XHTML renders void elements as "<img ... />".
	XHTML bool
}

// Parser wraps one goldmark instance with the image alias extension
// registered exactly once. It keeps no per-call state, so a Parser may be
// reused across calls and shared between goroutines.
type Parser struct {
	md goldmark.Markdown
}

// NewParser builds a Parser.
func NewParser(opts Options) *Parser {
	extensions := []goldmark.Extender{ImageAlias}
	if opts.GFM {
		extensions = []goldmark.Extender{
			NewImageAlias(WithLabelParsers(
				util.Prioritized(extension.NewStrikethroughParser(), 500),
				util.Prioritized(extension.NewLinkifyParser(), 999),
			)),
			extension.GFM,
		}
	}
	var rendererOpts []renderer.Option
	if opts.UnsafeHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	if opts.XHTML {
		rendererOpts = append(rendererOpts, html.WithXHTML())
	}
	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Parser{md: md}
}

// Parse parses a Markdown document into a goldmark AST.
func (p *Parser) Parse(source []byte) gmast.Node {
	return p.md.Parser().Parse(text.NewReader(source))
}

// Render writes the HTML for a tree previously returned by Parse.
func (p *Parser) Render(w io.Writer, source []byte, doc gmast.Node) error {
	return p.md.Renderer().Render(w, source, doc)
}
