package image

import (
	"fmt"
	"sort"
)

// Field identifies a record field that change directives can target.
type Field int

const (
	// FieldDescription is the optional human-readable description.
	FieldDescription Field = iota
	// FieldURL is the mandatory image source location.
	FieldURL
	// FieldUpdateAfterDays is the optional per-image staleness threshold.
	FieldUpdateAfterDays
)

// fields lists every directive-targetable field in serialization order.
var fields = []Field{FieldDescription, FieldURL, FieldUpdateAfterDays}

// String returns the field's token form as used inside change directives.
func (f Field) String() string {
	switch f {
	case FieldDescription:
		return "description"
	case FieldURL:
		return "url"
	case FieldUpdateAfterDays:
		return "update-after-days"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField parses a field token. The second result reports whether the
// token names a known field.
func ParseField(s string) (Field, bool) {
	switch s {
	case "description":
		return FieldDescription, true
	case "url":
		return FieldURL, true
	case "update-after-days":
		return FieldUpdateAfterDays, true
	default:
		return 0, false
	}
}

// DirectiveKind discriminates the directive variants.
type DirectiveKind int

const (
	// DirectiveDelete marks the record for removal once it disappears from
	// the canonical registry.
	DirectiveDelete DirectiveKind = iota
	// DirectiveUpdateAll overwrites every field from the canonical registry.
	DirectiveUpdateAll
	// DirectiveUpdateField overwrites a single field.
	DirectiveUpdateField
	// DirectiveKeepField pins a single field against update-all.
	DirectiveKeepField
	// DirectiveKeepChange keeps the directive set itself across merges.
	DirectiveKeepChange
	// DirectiveUnknown carries an unrecognized token verbatim.
	DirectiveUnknown
)

// Directive is one change directive attached to a record. Field is meaningful
// only for DirectiveUpdateField and DirectiveKeepField; Raw only for
// DirectiveUnknown, where it holds the original token text.
type Directive struct {
	Kind  DirectiveKind
	Field Field
	Raw   string
}

// Token returns the directive's serialized token form.
func (d Directive) Token() string {
	switch d.Kind {
	case DirectiveDelete:
		return "delete"
	case DirectiveUpdateAll:
		return "update-all"
	case DirectiveUpdateField:
		return "update-" + d.Field.String()
	case DirectiveKeepField:
		return "keep-" + d.Field.String()
	case DirectiveKeepChange:
		return "keep-change"
	default:
		return d.Raw
	}
}

// ParseDirective parses one change token. Tokens outside the known vocabulary
// parse to DirectiveUnknown and round-trip verbatim.
func ParseDirective(token string) Directive {
	switch token {
	case "delete":
		return Directive{Kind: DirectiveDelete}
	case "update-all":
		return Directive{Kind: DirectiveUpdateAll}
	case "keep-change":
		return Directive{Kind: DirectiveKeepChange}
	}
	for _, f := range fields {
		switch token {
		case "update-" + f.String():
			return Directive{Kind: DirectiveUpdateField, Field: f}
		case "keep-" + f.String():
			return Directive{Kind: DirectiveKeepField, Field: f}
		}
	}
	return Directive{Kind: DirectiveUnknown, Raw: token}
}

// Record is one image entry in a registry. Name is the key and never changes
// once the record exists; URL is mandatory.
type Record struct {
	Name            string
	Description     string
	URL             string
	Change          []Directive
	UpdateAfterDays *int
}

// StalenessThreshold returns the record's update-after-days override if set,
// otherwise the registry-wide default.
func (r Record) StalenessThreshold(defaultDays int) int {
	if r.UpdateAfterDays != nil {
		return *r.UpdateAfterDays
	}
	return defaultDays
}

// ChangeTokens returns the record's directive set in the fixed serialization
// order: delete, update-all, update-<field> per field, keep-<field> per
// field, keep-change, then unknown tokens in their original order. Duplicate
// tokens collapse.
func (r Record) ChangeTokens() []string {
	if len(r.Change) == 0 {
		return nil
	}

	var hasDelete, hasUpdateAll, hasKeepChange bool
	update := make(map[Field]bool)
	keep := make(map[Field]bool)
	var unknown []string
	unknownSeen := make(map[string]bool)
	for _, d := range r.Change {
		switch d.Kind {
		case DirectiveDelete:
			hasDelete = true
		case DirectiveUpdateAll:
			hasUpdateAll = true
		case DirectiveUpdateField:
			update[d.Field] = true
		case DirectiveKeepField:
			keep[d.Field] = true
		case DirectiveKeepChange:
			hasKeepChange = true
		case DirectiveUnknown:
			if !unknownSeen[d.Raw] {
				unknown = append(unknown, d.Raw)
				unknownSeen[d.Raw] = true
			}
		}
	}

	var tokens []string
	if hasDelete {
		tokens = append(tokens, "delete")
	}
	if hasUpdateAll {
		tokens = append(tokens, "update-all")
	}
	for _, f := range fields {
		if update[f] {
			tokens = append(tokens, "update-"+f.String())
		}
	}
	for _, f := range fields {
		if keep[f] {
			tokens = append(tokens, "keep-"+f.String())
		}
	}
	if hasKeepChange {
		tokens = append(tokens, "keep-change")
	}

	return append(tokens, unknown...)
}

// clone returns a deep copy so that merged output never aliases input slices.
func (r Record) clone() Record {
	out := r
	if r.Change != nil {
		out.Change = make([]Directive, len(r.Change))
		copy(out.Change, r.Change)
	}
	if r.UpdateAfterDays != nil {
		days := *r.UpdateAfterDays
		out.UpdateAfterDays = &days
	}
	return out
}

// equal reports whether two records hold the same stored values. Directive
// sets compare by their canonical token form, so storage order is ignored.
func (r Record) equal(other Record) bool {
	if r.Name != other.Name || r.Description != other.Description || r.URL != other.URL {
		return false
	}
	if (r.UpdateAfterDays == nil) != (other.UpdateAfterDays == nil) {
		return false
	}
	if r.UpdateAfterDays != nil && *r.UpdateAfterDays != *other.UpdateAfterDays {
		return false
	}
	a, b := r.ChangeTokens(), other.ChangeTokens()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Registry is the set of image records, keyed by unique name.
type Registry map[string]Record

// Names returns the registry's names in ascending byte-wise order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records returns the registry's records in ascending name order.
func (r Registry) Records() []Record {
	records := make([]Record, 0, len(r))
	for _, name := range r.Names() {
		records = append(records, r[name])
	}
	return records
}

// RecordError reports a malformed record in an input registry.
type RecordError struct {
	Name   string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed image record %q: %s", e.Name, e.Reason)
}

// Validate checks every record for the mandatory url field. The first
// offending name in ascending order is reported.
func (r Registry) Validate() error {
	for _, name := range r.Names() {
		if r[name].URL == "" {
			return &RecordError{Name: name, Reason: "missing url"}
		}
	}
	return nil
}
