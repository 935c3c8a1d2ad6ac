package markdown

import (
	"fmt"
	"slices"

	gmast "github.com/yuin/goldmark/ast"
)

// edit replaces source[start:end] with text.
type edit struct {
	start, end int
	text       []byte
}

// applyEdits returns a copy of source with every edit applied. Edits may come
// in any order but must not overlap.
func applyEdits(source []byte, edits []edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b edit) int { return a.start - b.start })

	out := make([]byte, 0, len(source))
	pos := 0
	for _, e := range sorted {
		switch {
		case e.start < pos:
			return nil, fmt.Errorf("edit at %d overlaps the previous edit", e.start)
		case e.end < e.start || e.end > len(source):
			return nil, fmt.Errorf("edit range %d:%d outside source of %d bytes", e.start, e.end, len(source))
		}
		out = append(out, source[pos:e.start]...)
		out = append(out, e.text...)
		pos = e.end
	}
	return append(out, source[pos:]...), nil
}

// RewriteImageLinks replaces the destination of every inline-form image for
// which rewrite returns ok. Reference-form images are left alone since their
// destinations live in the reference definitions.
func RewriteImageLinks(source []byte, doc gmast.Node, rewrite func(ImageRef) (string, bool)) ([]byte, error) {
	var edits []edit
	for _, ref := range Images(doc) {
		if ref.DestStart < 0 || ref.DestEnd < ref.DestStart {
			continue
		}
		if dest, ok := rewrite(ref); ok {
			edits = append(edits, edit{start: ref.DestStart, end: ref.DestEnd, text: []byte(dest)})
		}
	}
	return applyEdits(source, edits)
}
