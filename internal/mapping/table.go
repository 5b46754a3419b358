// Package mapping holds the reversible substitution tables produced by
// anonymization: every (original, category) pair maps to exactly one
// synthetic value for the lifetime of a session, and the table is the only
// artifact needed to reverse an anonymized document.
package mapping

import (
	"sort"
	"sync"
	"time"

	"github.com/Gunoch/anonimatizacao/internal/detect"
)

// Mode selects the style of synthetic values a session produces.
type Mode string

const (
	// ModeRealistic replaces PII with plausible same-format fakes.
	ModeRealistic Mode = "REALISTIC"
	// ModePlaceholder replaces PII with numbered category tags
	// such as [PERSON_1].
	ModePlaceholder Mode = "PLACEHOLDER"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeRealistic, ModePlaceholder:
		return Mode(s), true
	}
	return "", false
}

// Entry is one original-to-synthetic substitution.
type Entry struct {
	Original        string          `json:"original"`
	Synthetic       string          `json:"synthetic"`
	Category        detect.Category `json:"category"`
	FirstSeenOffset int             `json:"first_seen_offset"`
}

type tableKey struct {
	original string
	category detect.Category
}

// Table is a session's substitution table. The same original text may map
// to different synthetics under different categories ("Silva" the surname
// vs "Silva" the street), so the key is the (original, category) pair.
// Safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	sessionID string
	mode      Mode
	createdAt time.Time
	entries   map[tableKey]Entry
	inUse     map[string]struct{}
}

// NewTable creates an empty table for a session.
func NewTable(sessionID string, mode Mode) *Table {
	return &Table{
		sessionID: sessionID,
		mode:      mode,
		createdAt: time.Now().UTC(),
		entries:   make(map[tableKey]Entry),
		inUse:     make(map[string]struct{}),
	}
}

// SessionID returns the owning session's identifier.
func (t *Table) SessionID() string { return t.sessionID }

// Mode returns the substitution mode the table was built under.
func (t *Table) Mode() Mode { return t.mode }

// CreatedAt returns the table's creation time.
func (t *Table) CreatedAt() time.Time { return t.createdAt }

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Lookup returns the synthetic already assigned to (original, category).
func (t *Table) Lookup(original string, category detect.Category) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[tableKey{original, category}]
	return e.Synthetic, ok
}

// SyntheticInUse reports whether synthetic is already assigned to any entry.
// Generators consult it to avoid collisions between distinct originals.
func (t *Table) SyntheticInUse(synthetic string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.inUse[synthetic]
	return ok
}

// Insert records a new substitution. Inserting the same (original, category)
// twice keeps the first entry; the stored synthetic is returned either way
// so callers always substitute consistently.
func (t *Table) Insert(e Entry) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := tableKey{e.Original, e.Category}
	if existing, ok := t.entries[key]; ok {
		return existing.Synthetic
	}
	t.entries[key] = e
	t.inUse[e.Synthetic] = struct{}{}
	return e.Synthetic
}

// Entries returns all entries ordered by first-seen offset, then original.
// The order is stable so exports and reports are reproducible.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSeenOffset != out[j].FirstSeenOffset {
			return out[i].FirstSeenOffset < out[j].FirstSeenOffset
		}
		return out[i].Original < out[j].Original
	})
	return out
}
