// Package alias implements the identifier grammar used to name image links.
//
// An alias is a non-empty ASCII identifier matching [A-Za-z][A-Za-z0-9-]*.
// Aliases are case-sensitive and name the image file written into a bundle.
package alias

// IsValidChar reports whether c may appear in an alias at the given position.
// The first character must be an ASCII letter; later characters may also be
// ASCII digits or a hyphen.
func IsValidChar(c byte, first bool) bool {
	if isLetter(c) {
		return true
	}
	if first {
		return false
	}
	return isDigit(c) || c == '-'
}

// IsValid reports whether s is a complete, well-formed alias.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsValidChar(s[i], i == 0) {
			return false
		}
	}
	return true
}

// ScanResult describes the outcome of Scan.
type ScanResult struct {
	OK   bool
	End  int    // offset of the stop boundary when OK
	Text string // scanned alias when OK
}

// Scan consumes alias characters from src[pos:max] greedily.
//
// The scan stops cleanly at the first whitespace byte or any byte listed in
// stop. It fails on the first byte that is neither a valid alias character nor
// a boundary, when it runs into max without meeting a boundary, and when no
// character was consumed. Once alias syntax has begun it must therefore be a
// complete alias.
func Scan(src []byte, pos, max int, stop []byte) ScanResult {
	if max > len(src) {
		max = len(src)
	}
	start := pos
	for pos < max {
		c := src[pos]
		if IsSpace(c) || isStop(c, stop) {
			if pos == start {
				return ScanResult{}
			}
			return ScanResult{OK: true, End: pos, Text: string(src[start:pos])}
		}
		if !IsValidChar(c, pos == start) {
			return ScanResult{}
		}
		pos++
	}
	return ScanResult{}
}

// IsSpace reports whether c is a whitespace byte that terminates an alias.
func IsSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isStop(c byte, stop []byte) bool {
	for _, s := range stop {
		if c == s {
			return true
		}
	}
	return false
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
