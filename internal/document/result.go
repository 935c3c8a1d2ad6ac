package document

import (
	"encoding/json"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/integrity"
)

// Result is the outcome of processing one document.
type Result struct {
	Pass bool
	// HTML and AliasLinkMapping are set when Pass is true.
	HTML             string
	AliasLinkMapping map[string]string
	// Errors is set when Pass is false.
	Errors *Errors
}

// Errors groups integrity violations by the side of the relation they concern.
type Errors struct {
	// ImageLink holds orphaned links and links carrying several aliases.
	ImageLink map[string]LinkViolation `json:"imageLink"`
	// ImageAlias holds aliases naming several links.
	ImageAlias map[string][]string `json:"imageAlias"`
	// Internal describes an unexpected processing failure.
	Internal string `json:"internal,omitempty"`
}

// LinkViolation is either an orphaned link or the list of aliases a link was
// given. It marshals as true or as that list.
type LinkViolation struct {
	Orphaned bool
	Aliases  []string
}

func (v LinkViolation) MarshalJSON() ([]byte, error) {
	if v.Orphaned {
		return []byte("true"), nil
	}
	aliases := v.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return json.Marshal(aliases)
}

func (v *LinkViolation) UnmarshalJSON(data []byte) error {
	var orphaned bool
	if err := json.Unmarshal(data, &orphaned); err == nil {
		*v = LinkViolation{Orphaned: orphaned}
		return nil
	}
	var aliases []string
	if err := json.Unmarshal(data, &aliases); err != nil {
		return fmt.Errorf("imageLink entry must be true or a list of aliases: %w", err)
	}
	*v = LinkViolation{Aliases: aliases}
	return nil
}

type successJSON struct {
	Pass             bool              `json:"pass"`
	HTML             string            `json:"html"`
	AliasLinkMapping map[string]string `json:"aliasLinkMapping"`
}

type failureJSON struct {
	Pass   bool    `json:"pass"`
	Errors *Errors `json:"errors"`
}

// MarshalJSON emits {pass, html, aliasLinkMapping} on success and
// {pass, errors} on failure.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Pass {
		mapping := r.AliasLinkMapping
		if mapping == nil {
			mapping = map[string]string{}
		}
		return json.Marshal(successJSON{Pass: true, HTML: r.HTML, AliasLinkMapping: mapping})
	}
	errs := r.Errors
	if errs == nil {
		errs = &Errors{}
	}
	return json.Marshal(failureJSON{Pass: false, Errors: errs.normalized()})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Pass             bool              `json:"pass"`
		HTML             string            `json:"html"`
		AliasLinkMapping map[string]string `json:"aliasLinkMapping"`
		Errors           *Errors           `json:"errors"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result{Pass: wire.Pass, HTML: wire.HTML, AliasLinkMapping: wire.AliasLinkMapping, Errors: wire.Errors}
	return nil
}

// Violations counts violating keys across both maps.
func (r Result) Violations() int {
	if r.Errors == nil {
		return 0
	}
	return len(r.Errors.ImageLink) + len(r.Errors.ImageAlias)
}

// Err returns nil for a passing document and a validation error otherwise.
func (r Result) Err() error {
	if r.Pass {
		return nil
	}
	if r.Errors != nil && r.Errors.Internal != "" {
		return errors.InternalError("document processing failed").
			WithContext("reason", r.Errors.Internal).
			Build()
	}
	b := errors.ValidationError("document failed image integrity checks").UserAction()
	if r.Errors != nil {
		for kind, n := range r.Errors.counts() {
			if n > 0 {
				b = b.WithContext(string(kind), n)
			}
		}
	}
	return b.Build()
}

// OrphanedLinks lists orphaned links in sorted order.
func (e *Errors) OrphanedLinks() []string {
	var out []string
	for link, v := range e.ImageLink {
		if v.Orphaned {
			out = append(out, link)
		}
	}
	sort.Strings(out)
	return out
}

func (e *Errors) counts() map[integrity.ViolationKind]int {
	counts := map[integrity.ViolationKind]int{}
	if e == nil {
		return counts
	}
	for _, v := range e.ImageLink {
		if v.Orphaned {
			counts[integrity.KindOrphan]++
		} else {
			counts[integrity.KindLinkConflict]++
		}
	}
	counts[integrity.KindAliasConflict] = len(e.ImageAlias)
	return counts
}

func (e *Errors) normalized() *Errors {
	out := *e
	if out.ImageLink == nil {
		out.ImageLink = map[string]LinkViolation{}
	}
	if out.ImageAlias == nil {
		out.ImageAlias = map[string][]string{}
	}
	return &out
}

func failure(report integrity.Report) Result {
	errs := &Errors{
		ImageLink:  make(map[string]LinkViolation, len(report.LinkConflicts)+len(report.Orphans)),
		ImageAlias: make(map[string][]string, len(report.AliasConflicts)),
	}
	for link, aliases := range report.LinkConflicts {
		errs.ImageLink[link] = LinkViolation{Aliases: aliases}
	}
	for _, link := range report.Orphans {
		errs.ImageLink[link] = LinkViolation{Orphaned: true}
	}
	for alias, links := range report.AliasConflicts {
		errs.ImageAlias[alias] = links
	}
	return Result{Pass: false, Errors: errs}
}

func internalFailure(reason string) Result {
	return Result{Pass: false, Errors: &Errors{
		ImageLink:  map[string]LinkViolation{},
		ImageAlias: map[string][]string{},
		Internal:   reason,
	}}
}
