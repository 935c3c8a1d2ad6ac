package integrity

import (
	gmast "github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/aliasdoc/internal/markdown"
	"git.home.luguber.info/inful/aliasdoc/internal/util/sets"
)

// ViolationKind names one category of integrity violation.
type ViolationKind string

const (
	KindLinkConflict  ViolationKind = "link_conflict"
	KindAliasConflict ViolationKind = "alias_conflict"
	KindOrphan        ViolationKind = "orphan"
)

// Report collects every violation found in one document.
type Report struct {
	// LinkConflicts maps a link to every alias it was given, first one included.
	LinkConflicts map[string][]string
	// AliasConflicts maps an alias to every link it was given, first one included.
	AliasConflicts map[string][]string
	// Orphans lists links that never received an alias, in document order.
	Orphans []string
}

// Empty reports whether no violation was recorded.
func (r Report) Empty() bool {
	return len(r.LinkConflicts) == 0 && len(r.AliasConflicts) == 0 && len(r.Orphans) == 0
}

// Counts returns the number of violating keys per kind.
func (r Report) Counts() map[ViolationKind]int {
	return map[ViolationKind]int{
		KindLinkConflict:  len(r.LinkConflicts),
		KindAliasConflict: len(r.AliasConflicts),
		KindOrphan:        len(r.Orphans),
	}
}

// Result is the outcome of one validation.
type Result struct {
	Pass bool
	// Mapping is alias -> link. Only set when Pass is true.
	Mapping map[string]string
	Report  Report
}

// ValidateTree validates every image reachable from doc.
func ValidateTree(doc gmast.Node) Result {
	return Validate(markdown.Images(doc))
}

// Validate checks the images of one document. The outcome does not depend on
// the order of refs except for the order of values inside the report.
func Validate(refs []markdown.ImageRef) Result {
	linkAlias := newRelation()
	aliasLink := newRelation()

	for _, ref := range refs {
		linkAlias.observe(ref.Link, ref.Alias)
		aliasLink.observe(ref.Alias, ref.Link)
	}

	report := Report{
		LinkConflicts:  linkAlias.conflicts,
		AliasConflicts: aliasLink.conflicts,
	}
	for _, link := range linkAlias.order {
		if linkAlias.bound[link] == "" {
			report.Orphans = append(report.Orphans, link)
		}
	}

	if !report.Empty() {
		return Result{Pass: false, Report: report}
	}

	mapping := make(map[string]string, len(linkAlias.bound))
	for link, alias := range linkAlias.bound {
		mapping[alias] = link
	}
	return Result{Pass: true, Mapping: mapping, Report: report}
}

// relation tracks one direction of the link/alias pairing.
type relation struct {
	bound     map[string]string
	order     []string
	conflicts map[string][]string
	members   map[string]sets.Set[string]
}

func newRelation() *relation {
	return &relation{
		bound:     make(map[string]string),
		conflicts: make(map[string][]string),
		members:   make(map[string]sets.Set[string]),
	}
}

// observe records that key was seen paired with value. Empty keys are ignored.
// An empty recorded value is replaced by the first non-empty one.
func (r *relation) observe(key, value string) {
	if key == "" {
		return
	}
	current, seen := r.bound[key]
	if !seen {
		r.order = append(r.order, key)
	}
	if !seen || current == "" {
		r.bound[key] = value
		return
	}
	if value == "" || value == current {
		return
	}

	members, ok := r.members[key]
	if !ok {
		members = sets.New(current)
		r.members[key] = members
		r.conflicts[key] = []string{current}
	}
	if members.Has(value) {
		return
	}
	members.Add(value)
	r.conflicts[key] = append(r.conflicts[key], value)
}
