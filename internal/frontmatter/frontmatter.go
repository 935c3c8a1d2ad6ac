// Package frontmatter splits Markdown documents into YAML front matter and
// body, and reads the fields aliasdoc cares about (title, tags, fingerprint).
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is a Markdown source split at its front matter boundary.
type Document struct {
	Fields map[string]any
	Body   []byte
	// HasFrontMatter is false when the source did not start with "---".
	HasFrontMatter bool
	// Newline is the line ending detected in the source.
	Newline string
}

// Parse splits content. A document without front matter yields empty Fields
// and the full input as Body.
func Parse(content []byte) (Document, error) {
	nl := detectNewline(content)
	doc := Document{Fields: map[string]any{}, Body: content, Newline: nl}

	delim := []byte("---" + nl)
	if !bytes.HasPrefix(content, delim) {
		return doc, nil
	}

	rest := content[len(delim):]
	var raw []byte
	switch {
	case bytes.HasPrefix(rest, delim):
		doc.Body = rest[len(delim):]
	default:
		closing := []byte(nl + "---" + nl)
		idx := bytes.Index(rest, closing)
		if idx < 0 {
			return Document{}, ErrMissingClosingDelimiter
		}
		raw = rest[:idx+len(nl)]
		doc.Body = rest[idx+len(closing):]
	}

	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &doc.Fields); err != nil {
			return Document{}, fmt.Errorf("parse front matter: %w", err)
		}
		if doc.Fields == nil {
			doc.Fields = map[string]any{}
		}
	}
	doc.HasFrontMatter = true
	return doc, nil
}

// Bytes reassembles the document. Fields are serialized with sorted keys, so
// the output is stable but does not preserve the original YAML formatting.
func (d Document) Bytes() ([]byte, error) {
	if !d.HasFrontMatter {
		return d.Body, nil
	}
	nl := d.Newline
	if nl == "" {
		nl = "\n"
	}
	raw, err := serialize(d.Fields, nl)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---" + nl)
	buf.Write(raw)
	buf.WriteString("---" + nl)
	buf.Write(d.Body)
	return buf.Bytes(), nil
}

// Title returns the trimmed string title field, if any.
func (d Document) Title() string {
	s, _ := d.Fields["title"].(string)
	return strings.TrimSpace(s)
}

// Tags returns the tags field as strings. A single string is a one-element list.
func (d Document) Tags() []string {
	switch v := d.Fields["tags"].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
