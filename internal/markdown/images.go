package markdown

import (
	gmast "github.com/yuin/goldmark/ast"
)

// ImageRef is the (link, alias) pair carried by one image in a document.
type ImageRef struct {
	Link  string
	Alias string
	Title string
	Form  ImageForm

	// DestStart and DestEnd locate the raw destination in the source, or -1.
	DestStart int
	DestEnd   int
}

// Images lists every image in doc in document order.
//
// Label content of an aliased image is not descended into. Plain goldmark
// images, which only appear when another extension produces them, are
// reported without an alias.
func Images(doc gmast.Node) []ImageRef {
	refs := make([]ImageRef, 0)
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *AliasedImage:
			refs = append(refs, ImageRef{
				Link:      string(node.Destination),
				Alias:     string(node.Alias),
				Title:     string(node.Title),
				Form:      node.Form,
				DestStart: node.DestStart,
				DestEnd:   node.DestEnd,
			})
			return gmast.WalkSkipChildren, nil
		case *gmast.Image:
			refs = append(refs, ImageRef{
				Link:      string(node.Destination),
				Title:     string(node.Title),
				Form:      FormInline,
				DestStart: -1,
				DestEnd:   -1,
			})
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return refs
}
