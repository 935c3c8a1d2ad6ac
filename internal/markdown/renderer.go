package markdown

import (
	"bytes"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// imageAliasHTMLRenderer renders AliasedImage nodes as
// <img src="..." alt="..." alias="..." title="...">.
type imageAliasHTMLRenderer struct {
	html.Config
}

// NewImageAliasHTMLRenderer returns the node renderer for AliasedImage.
func NewImageAliasHTMLRenderer(opts ...html.Option) renderer.NodeRenderer {
	r := &imageAliasHTMLRenderer{Config: html.NewConfig()}
	for _, opt := range opts {
		opt.SetHTMLOption(&r.Config)
	}
	return r
}

func (r *imageAliasHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAliasedImage, r.renderAliasedImage)
}

func (r *imageAliasHTMLRenderer) renderAliasedImage(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*AliasedImage)
	_, _ = w.WriteString(`<img src="`)
	if r.Unsafe || !html.IsDangerousURL(n.Destination) {
		_, _ = w.Write(util.EscapeHTML(n.Destination))
	}
	_, _ = w.WriteString(`" alt="`)
	_, _ = w.Write(util.EscapeHTML(AltText(n)))
	_, _ = w.WriteString(`" alias="`)
	_, _ = w.Write(util.EscapeHTML(n.Alias))
	_ = w.WriteByte('"')
	if len(n.Title) > 0 {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_ = w.WriteByte('"')
	}
	if r.XHTML {
		_, _ = w.WriteString(" />")
	} else {
		_, _ = w.WriteString(">")
	}
	return gmast.WalkSkipChildren, nil
}

// AltText flattens the label children of an image into plain text.
func AltText(n *AliasedImage) []byte {
	var buf bytes.Buffer
	writePlainText(&buf, n, n.Label)
	return buf.Bytes()
}

func writePlainText(buf *bytes.Buffer, parent gmast.Node, source []byte) {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *gmast.Text:
			value := v.Segment.Value(source)
			value = util.UnescapePunctuations(value)
			value = util.ResolveNumericReferences(value)
			buf.Write(util.ResolveEntityNames(value))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *gmast.String:
			buf.Write(v.Value)
		case *gmast.CodeSpan:
			for t := v.FirstChild(); t != nil; t = t.NextSibling() {
				if seg, ok := t.(*gmast.Text); ok {
					buf.Write(seg.Segment.Value(source))
				}
			}
		case *gmast.AutoLink:
			buf.Write(v.Label(source))
		case *gmast.RawHTML:
			// markup carries no alt text
		case *AliasedImage:
			writePlainText(buf, v, v.Label)
		default:
			writePlainText(buf, c, source)
		}
	}
}
