// Package detect finds personally identifiable information in plain text.
// Two detectors feed it: a regex Scanner driven by a Presidio-style
// recognizer registry, and an NER client wrapping a statistical model
// sidecar. The Resolver merges both outputs into a single ordered,
// non-overlapping span list after stop-term filtering.
package detect

import "fmt"

// Category is the closed set of PII categories a span can carry. The set is
// exhaustive: configuration referring to any other value is rejected at
// startup, never at detection time.
type Category string

const (
	CategoryPerson   Category = "PERSON"
	CategoryAddress  Category = "ADDRESS"
	CategoryEmail    Category = "EMAIL"
	CategoryPhone    Category = "PHONE"
	CategoryIDNumber Category = "ID_NUMBER"
	CategoryOrg      Category = "ORG"
	CategoryOther    Category = "OTHER"
)

// Categories lists every valid category, in a stable order.
var Categories = []Category{
	CategoryPerson,
	CategoryAddress,
	CategoryEmail,
	CategoryPhone,
	CategoryIDNumber,
	CategoryOrg,
	CategoryOther,
}

// ParseCategory validates a category string from configuration.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown PII category %q", s)
}

// Source identifies which detector produced a span. Pattern matches are
// structurally certain and outrank model matches during overlap resolution.
type Source string

const (
	SourcePattern Source = "PATTERN"
	SourceModel   Source = "MODEL"
)

// Span is a half-open character range [Start, End) in the source text tagged
// with a PII category. Entity carries the recognizer entity (e.g. "CPF") for
// pattern spans so the substitution engine can generate format-matching
// synthetic values; model spans leave it empty.
type Span struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Category   Category `json:"category"`
	Entity     string   `json:"entity,omitempty"`
	Source     Source   `json:"source"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// ResolvedSpanSet is an ordered sequence of non-overlapping spans sorted by
// Start. It is the only span list the substitution engine ever sees.
type ResolvedSpanSet []Span

// Validate checks the set's ordering and non-overlap invariants against the
// document length. Used in tests and as a guard before substitution.
func (rs ResolvedSpanSet) Validate(docLen int) error {
	for i, sp := range rs {
		if sp.Start < 0 || sp.End > docLen || sp.Start >= sp.End {
			return fmt.Errorf("span %d [%d,%d) out of bounds for document of %d bytes", i, sp.Start, sp.End, docLen)
		}
		if i > 0 && rs[i-1].End > sp.Start {
			return fmt.Errorf("span %d [%d,%d) overlaps previous span ending at %d", i, sp.Start, sp.End, rs[i-1].End)
		}
	}
	return nil
}
