package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

type imageAlias struct {
	labelParsers []util.PrioritizedValue
}

// ImageAliasOption configures the image alias extension.
type ImageAliasOption func(*imageAlias)

// WithLabelParsers adds inline parsers used inside image labels. Pass the
// inline parsers of any other extension registered on the same engine.
func WithLabelParsers(ps ...util.PrioritizedValue) ImageAliasOption {
	return func(e *imageAlias) {
		e.labelParsers = append(e.labelParsers, ps...)
	}
}

// NewImageAlias returns a goldmark extension adding aliased image syntax.
func NewImageAlias(opts ...ImageAliasOption) goldmark.Extender {
	e := &imageAlias{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ImageAlias is the image alias extension with goldmark's default label syntax.
var ImageAlias = NewImageAlias()

func (e *imageAlias) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(NewImageAliasParser(e.labelParsers...), imageAliasPriority),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewImageAliasHTMLRenderer(), 500),
	))
}
