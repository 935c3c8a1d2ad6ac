package markdown

import (
	"bytes"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/aliasdoc/internal/alias"
)

// imageAliasPriority places the parser ahead of goldmark's link parser (200),
// which would otherwise claim every "![".
const imageAliasPriority = 199

var aliasStop = []byte{')'}

type imageAliasParser struct {
	// labels parses image labels as inline content. It is built from
	// paragraph-only block parsing and shares this parser for nested images.
	labels parser.Parser
}

// NewImageAliasParser returns the inline parser for aliased images.
//
// Recognized forms:
//
//	![label](dest "title" | alias)
//	![label](dest|alias)
//	![alias]  ![alias][]  ![label][alias]
//
// Reference forms only match when the key is a valid alias with a matching
// link reference definition. labelParsers are added to goldmark's defaults
// when parsing labels, so inline syntax of other extensions works there too.
func NewImageAliasParser(labelParsers ...util.PrioritizedValue) parser.InlineParser {
	p := &imageAliasParser{}
	inline := append(parser.DefaultInlineParsers(), labelParsers...)
	inline = append(inline, util.Prioritized(p, imageAliasPriority))
	p.labels = parser.NewParser(
		parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
		parser.WithInlineParsers(inline...),
	)
	return p
}

func (p *imageAliasParser) Trigger() []byte {
	return []byte{'!'}
}

func (p *imageAliasParser) Parse(_ gmast.Node, block text.Reader, pc parser.Context) gmast.Node {
	line, segment := block.PeekLine()
	if len(line) < 2 || line[0] != '!' || line[1] != '[' {
		return nil
	}

	// Labels, titles and the alias segment may continue onto later lines of
	// the same paragraph, so scan the rest of the block as one buffer.
	rest := readRest(block)
	img, consumed, ok := p.scanImage(rest.buf, pc)
	if !ok {
		// Emit the '!' as literal text so the remaining "[...]" is left to
		// the link parser. Goldmark's own image handling never sees it.
		block.Advance(1)
		return gmast.NewTextSegment(segment.WithStop(segment.Start + 1))
	}
	if img.DestStart >= 0 {
		start, last := rest.source(img.DestStart), rest.source(img.DestEnd-1)
		if start < 0 || last < 0 {
			img.DestStart, img.DestEnd = -1, -1
		} else {
			img.DestStart, img.DestEnd = start, last+1
		}
	}

	advance(block, consumed)
	return img
}

// blockRest holds the unread part of an inline block, lines joined as in the
// source, and where each line starts in the source.
type blockRest struct {
	buf   []byte
	lines []restLine
}

type restLine struct {
	at    int // offset of the line in buf
	start int // source offset of the line, -1 when padded
}

// readRest collects the remaining lines of block without moving it.
func readRest(block text.Reader) blockRest {
	lineNo, pos := block.Position()
	defer block.SetPosition(lineNo, pos)

	var r blockRest
	for {
		line, segment := block.PeekLine()
		if line == nil {
			return r
		}
		// Padded segments (tab expansion) do not map bytes 1:1 onto the source.
		start := segment.Start
		if segment.Padding > 0 {
			start = -1
		}
		r.lines = append(r.lines, restLine{at: len(r.buf), start: start})
		r.buf = append(r.buf, line...)
		block.AdvanceLine()
	}
}

// source maps an offset in buf to the source, or -1 when it cannot be mapped.
func (r blockRest) source(i int) int {
	for j := len(r.lines) - 1; j >= 0; j-- {
		l := r.lines[j]
		if l.at > i {
			continue
		}
		if l.start < 0 {
			return -1
		}
		return l.start + i - l.at
	}
	return -1
}

// advance moves block forward by n bytes of joined line content.
func advance(block text.Reader, n int) {
	for n > 0 {
		line, _ := block.PeekLine()
		if line == nil {
			return
		}
		if n < len(line) {
			block.Advance(n)
			return
		}
		n -= len(line)
		block.AdvanceLine()
	}
}

// scanImage recognizes one aliased image at the start of line. DestStart and
// DestEnd of the result are offsets into line. On failure nothing is consumed.
func (p *imageAliasParser) scanImage(line []byte, pc parser.Context) (*AliasedImage, int, bool) {
	labelEnd := matchLabel(line, 1)
	if labelEnd < 0 {
		return nil, 0, false
	}
	label := line[2:labelEnd]

	var (
		img *AliasedImage
		end int
		ok  bool
	)
	if labelEnd+1 < len(line) && line[labelEnd+1] == '(' {
		img, end, ok = scanInline(line, labelEnd+1)
	} else {
		img, end, ok = scanReference(line, label, labelEnd, pc)
	}
	if !ok {
		return nil, 0, false
	}

	img.Label = append([]byte(nil), label...)
	p.parseLabel(img, pc)
	return img, end, true
}

// scanInline handles "(dest "title" | alias)" starting at the '(' in line[open].
func scanInline(line []byte, open int) (*AliasedImage, int, bool) {
	max := len(line)
	img := NewAliasedImage(FormInline)

	pos := skipSpace(line, open+1)
	if pos >= max {
		return nil, 0, false
	}

	if raw, end, ok := scanDestination(line, pos); ok {
		link := NormalizeLink(raw)
		if ValidateLink(link) {
			img.Destination = append([]byte(nil), link...)
			img.DestStart, img.DestEnd = pos, end
			pos = end
		}
	}

	// A title must be separated from the destination by whitespace.
	start := pos
	pos = skipSpace(line, pos)
	if pos < max && pos != start {
		if raw, end, ok := scanTitle(line, pos); ok {
			img.Title = append([]byte(nil), normalizeTitle(raw)...)
			pos = skipSpace(line, end)
		}
	}

	// Seeing '|' commits to a complete alias; anything else rejects the image.
	if pos < max && line[pos] == '|' {
		pos = skipSpace(line, pos+1)
		res := alias.Scan(line, pos, max, aliasStop)
		if pos >= max || !res.OK {
			return nil, 0, false
		}
		img.Alias = []byte(res.Text)
		pos = skipSpace(line, res.End)
	}

	if pos >= max || line[pos] != ')' {
		return nil, 0, false
	}
	return img, pos + 1, true
}

// scanReference handles "![label]", "![label][]" and "![label][key]".
func scanReference(line, label []byte, labelEnd int, pc parser.Context) (*AliasedImage, int, bool) {
	pos := labelEnd + 1
	var key []byte
	if pos < len(line) && line[pos] == '[' {
		if end := matchLabel(line, pos); end >= 0 {
			key = line[pos+1 : end]
			pos = end + 1
		}
	}
	if len(key) == 0 {
		key = label
	}

	name := string(bytes.TrimSpace(key))
	if !alias.IsValid(name) {
		return nil, 0, false
	}
	ref, ok := pc.Reference(util.ToLinkReference([]byte(name)))
	if !ok {
		return nil, 0, false
	}

	img := NewAliasedImage(FormReference)
	img.Alias = []byte(name)
	link := NormalizeLink(ref.Destination())
	if !ValidateLink(link) {
		return nil, 0, false
	}
	img.Destination = append([]byte(nil), link...)
	if title := ref.Title(); len(title) > 0 {
		img.Title = append([]byte(nil), normalizeTitle(title)...)
	}
	return img, pos, true
}

// parseLabel parses img.Label as inline content and attaches the result as
// children of img. Link references of the enclosing document stay visible.
func (p *imageAliasParser) parseLabel(img *AliasedImage, pc parser.Context) {
	if len(bytes.TrimSpace(img.Label)) == 0 {
		return
	}
	sub := parser.NewContext()
	for _, ref := range pc.References() {
		sub.AddReference(ref)
	}
	doc := p.labels.Parse(text.NewReader(img.Label), parser.WithContext(sub))
	para := doc.FirstChild()
	if para == nil {
		return
	}
	for c := para.FirstChild(); c != nil; {
		next := c.NextSibling()
		img.AppendChild(img, c)
		c = next
	}
}
