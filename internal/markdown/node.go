package markdown

import (
	"strconv"

	gmast "github.com/yuin/goldmark/ast"
)

// KindAliasedImage is the goldmark node kind for images carrying an alias.
var KindAliasedImage = gmast.NewNodeKind("AliasedImage")

// ImageForm tells which syntax produced an aliased image.
type ImageForm string

const (
	FormInline    ImageForm = "inline"
	FormReference ImageForm = "reference"
)

// AliasedImage is an inline image whose destination is paired with an alias.
//
// Children hold the inline content of the image label. Their text segments
// point into Label, not into the document source.
type AliasedImage struct {
	gmast.BaseInline

	// Destination is the normalized link; empty when it could not be resolved.
	Destination []byte
	Title       []byte
	// Alias is empty for inline images written without an alias segment.
	Alias []byte
	Label []byte
	Form  ImageForm

	// DestStart and DestEnd delimit the raw destination in the document
	// source. Both are -1 for reference images and unresolved destinations.
	DestStart int
	DestEnd   int
}

// Kind implements ast.Node.
func (n *AliasedImage) Kind() gmast.NodeKind {
	return KindAliasedImage
}

// Dump implements ast.Node.
func (n *AliasedImage) Dump(source []byte, level int) {
	gmast.DumpHelper(n, n.Label, level, map[string]string{
		"Destination": string(n.Destination),
		"Title":       string(n.Title),
		"Alias":       string(n.Alias),
		"Form":        string(n.Form),
		"DestRange":   strconv.Itoa(n.DestStart) + ":" + strconv.Itoa(n.DestEnd),
	}, nil)
}

// NewAliasedImage returns an empty AliasedImage of the given form.
func NewAliasedImage(form ImageForm) *AliasedImage {
	return &AliasedImage{Form: form, DestStart: -1, DestEnd: -1}
}
