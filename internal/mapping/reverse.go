package mapping

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// placeholderPattern matches numbered category tags that placeholder-mode
// substitution emits, e.g. [PERSON_3]. After reversal, any of these still
// present in the output had no mapping entry and become mismatches.
var placeholderPattern = regexp.MustCompile(`\[[A-Z_]+_\d+\]`)

// ReverseResult carries the restored text plus every synthetic-looking
// token the table could not resolve. Mismatches do not fail the reversal.
type ReverseResult struct {
	Text       string
	Replaced   int
	Mismatches []Mismatch
}

// Reverse restores original values in an anonymized document. Longer
// synthetics are replaced first so a synthetic that happens to contain
// another ("Ana Maria Souza" and "Ana") cannot corrupt the longer match.
func (t *Table) Reverse(ctx context.Context, text string) ReverseResult {
	_, span := tracer.Start(ctx, "mapping.reverse")
	defer span.End()

	entries := t.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Synthetic) > len(entries[j].Synthetic)
	})

	replaced := 0
	for _, e := range entries {
		n := strings.Count(text, e.Synthetic)
		if n == 0 {
			continue
		}
		text = strings.ReplaceAll(text, e.Synthetic, e.Original)
		replaced += n
	}

	var mismatches []Mismatch
	for _, loc := range placeholderPattern.FindAllStringIndex(text, -1) {
		m := Mismatch{Token: text[loc[0]:loc[1]], Offset: loc[0]}
		mismatches = append(mismatches, m)
		log.Warn().Str("token", m.Token).Int("offset", m.Offset).
			Msg("no mapping entry resolves token, leaving it in place")
	}

	span.SetAttributes(
		attribute.Int("mapping.replaced", replaced),
		attribute.Int("mapping.mismatches", len(mismatches)),
	)
	return ReverseResult{Text: text, Replaced: replaced, Mismatches: mismatches}
}
