package markdown

import (
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Scanners in this file work on the joined lines of one inline block, so a
// label or title may span soft line breaks. Goldmark keeps its own label,
// destination and title scanners unexported, so these follow the CommonMark
// rules the engine applies to ordinary links.

const maxDestinationNesting = 32

// matchLabel returns the index of the ']' closing the '[' at line[open], or -1.
// Backslash escapes and code spans are skipped and nested brackets balance.
func matchLabel(line []byte, open int) int {
	if open >= len(line) || line[open] != '[' {
		return -1
	}
	level := 1
	for pos := open + 1; pos < len(line); {
		c := line[pos]
		switch {
		case c == '\\' && pos+1 < len(line) && util.IsPunct(line[pos+1]):
			pos += 2
			continue
		case c == '`':
			pos = skipCodeSpan(line, pos)
			continue
		case c == '[':
			level++
		case c == ']':
			level--
			if level == 0 {
				return pos
			}
		}
		pos++
	}
	return -1
}

// skipCodeSpan returns the offset after the code span opening at line[pos].
// An unmatched backtick run is treated as literal text.
func skipCodeSpan(line []byte, pos int) int {
	run := 0
	for pos+run < len(line) && line[pos+run] == '`' {
		run++
	}
	for i := pos + run; i < len(line); {
		if line[i] != '`' {
			i++
			continue
		}
		closing := 0
		for i+closing < len(line) && line[i+closing] == '`' {
			closing++
		}
		if closing == run {
			return i + closing
		}
		i += closing
	}
	return pos + run
}

// scanDestination reads a link destination starting at line[pos].
//
// The angle-bracket form may contain spaces. The bare form balances
// parentheses, ends at whitespace or control characters, and also ends at an
// unescaped '|' so that an alias segment may follow without a separating blank.
func scanDestination(line []byte, pos int) (raw []byte, end int, ok bool) {
	if pos >= len(line) {
		return nil, pos, false
	}
	if line[pos] == '<' {
		for i := pos + 1; i < len(line); i++ {
			c := line[i]
			switch {
			case c == '\n' || c == '<':
				return nil, pos, false
			case c == '>':
				return line[pos+1 : i], i + 1, true
			case c == '\\' && i+1 < len(line) && util.IsPunct(line[i+1]):
				i++
			}
		}
		return nil, pos, false
	}

	level := 0
	i := pos
loop:
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c < 0x20 || c == 0x7f:
			break loop
		case c == '\\' && i+1 < len(line) && util.IsPunct(line[i+1]):
			i += 2
			continue
		case c == '(':
			level++
			if level > maxDestinationNesting {
				return nil, pos, false
			}
		case c == ')':
			if level == 0 {
				break loop
			}
			level--
		case c == '|' && level == 0:
			break loop
		}
		i++
	}
	if i == pos || level != 0 {
		return nil, pos, false
	}
	return line[pos:i], i, true
}

// scanTitle reads a quoted link title ("...", '...' or (...)) at line[pos].
func scanTitle(line []byte, pos int) (raw []byte, end int, ok bool) {
	if pos >= len(line) {
		return nil, pos, false
	}
	var closer byte
	switch line[pos] {
	case '"':
		closer = '"'
	case '\'':
		closer = '\''
	case '(':
		closer = ')'
	default:
		return nil, pos, false
	}
	for i := pos + 1; i < len(line); i++ {
		c := line[i]
		switch {
		case c == closer:
			return line[pos+1 : i], i + 1, true
		case c == '(' && closer == ')':
			return nil, pos, false
		case c == '\\' && i+1 < len(line) && util.IsPunct(line[i+1]):
			i++
		}
	}
	return nil, pos, false
}

// skipSpace advances over spaces, tabs and line endings.
func skipSpace(line []byte, pos int) int {
	for pos < len(line) {
		switch line[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// NormalizeLink turns a raw destination into the form stored on image nodes:
// backslash escapes removed, entities resolved and unsafe bytes percent-encoded.
func NormalizeLink(raw []byte) []byte {
	return util.URLEscape(util.UnescapePunctuations(raw), true)
}

// ValidateLink reports whether a normalized link may be emitted. Script-capable
// schemes (javascript:, vbscript:, file:, non-image data:) are rejected.
func ValidateLink(link []byte) bool {
	return !html.IsDangerousURL(link)
}

func normalizeTitle(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	v := util.UnescapePunctuations(raw)
	v = util.ResolveNumericReferences(v)
	return util.ResolveEntityNames(v)
}
