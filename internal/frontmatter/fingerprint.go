package frontmatter

import (
	"strings"
	"time"

	"github.com/inful/mdfp"
)

// Fields written when a document is archived. They are excluded from the
// fingerprint so that stamping a document does not change its identity.
const (
	FieldBundleID = "bundle_id"
	FieldBundled  = "bundled"
)

// Fingerprint computes the content fingerprint of the document: the canonical
// YAML of its fields, minus stamp fields, hashed together with the body.
func (d Document) Fingerprint() (string, error) {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		switch k {
		case mdfp.FingerprintField, FieldBundleID, FieldBundled:
			continue
		}
		fields[k] = v
	}

	canonical := ""
	if len(fields) > 0 {
		raw, err := serialize(fields, "\n")
		if err != nil {
			return "", err
		}
		canonical = strings.TrimSuffix(string(raw), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(canonical, string(d.Body)), nil
}

// Stamp records the archive identity in the front matter. Documents without
// front matter are left untouched and Stamp reports false.
func (d *Document) Stamp(bundleID, fingerprint string, at time.Time) bool {
	if !d.HasFrontMatter {
		return false
	}
	if d.Fields == nil {
		d.Fields = map[string]any{}
	}
	d.Fields[mdfp.FingerprintField] = fingerprint
	d.Fields[FieldBundleID] = bundleID
	d.Fields[FieldBundled] = at.UTC().Format(time.RFC3339)
	return true
}
