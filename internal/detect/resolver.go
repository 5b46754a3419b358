package detect

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Resolver reduces the union of pattern and model spans to a single
// ResolvedSpanSet. Resolution is a pure function of its inputs, so it is
// testable in isolation from the detectors.
type Resolver struct {
	stopTerms StopTerms
}

// NewResolver creates a resolver with the given stop-term whitelist.
// A nil whitelist disables stop-term filtering.
func NewResolver(stopTerms StopTerms) *Resolver {
	return &Resolver{stopTerms: stopTerms}
}

// Resolve merges candidate spans into an ordered, non-overlapping set:
//
//  1. Invalid candidates are discarded: zero-length silently, out-of-range
//     and mid-word with a warning.
//  2. Candidates are sorted by start, then descending length, with pattern
//     spans ahead of model spans on full ties.
//  3. A left-to-right sweep resolves overlaps: a pattern span beats an
//     overlapping model span even when the model span is longer (the regex
//     is structurally certain, the model is statistically inferred);
//     between same-source spans the longer, earlier one wins.
//  4. Spans whose exact text is whitelisted are dropped last, regardless of
//     source.
func (r *Resolver) Resolve(ctx context.Context, text string, candidates []Span) ResolvedSpanSet {
	_, span := tracer.Start(ctx, "detect.resolve")
	defer span.End()

	valid := make([]Span, 0, len(candidates))
	for _, sp := range candidates {
		if sp.Start == sp.End {
			continue
		}
		if sp.Start < 0 || sp.End > len(text) || sp.Start > sp.End {
			log.Warn().Int("start", sp.Start).Int("end", sp.End).
				Str("category", string(sp.Category)).
				Msg("discarding span with out-of-range offsets")
			continue
		}
		if !onWordBoundaries(text, sp.Start, sp.End) {
			log.Warn().Str("text", sp.Text).Str("category", string(sp.Category)).
				Msg("discarding span that starts or ends mid-word")
			continue
		}
		sp.Text = text[sp.Start:sp.End]
		valid = append(valid, sp)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		if valid[i].Len() != valid[j].Len() {
			return valid[i].Len() > valid[j].Len()
		}
		return valid[i].Source == SourcePattern && valid[j].Source == SourceModel
	})

	var kept []Span
	for _, sp := range valid {
		if len(kept) == 0 {
			kept = append(kept, sp)
			continue
		}
		last := &kept[len(kept)-1]
		if !sp.Overlaps(*last) {
			kept = append(kept, sp)
			continue
		}
		// Pattern evidence outranks the model for the text both claim.
		if sp.Source == SourcePattern && last.Source == SourceModel {
			*last = sp
		}
		// Otherwise the earlier (and on ties, longer) span stays.
	}

	resolved := make(ResolvedSpanSet, 0, len(kept))
	for _, sp := range kept {
		if r.stopTerms.Contains(sp.Text) {
			log.Debug().Str("term", sp.Text).Msg("span matches stop term, skipping")
			continue
		}
		resolved = append(resolved, sp)
	}

	span.SetAttributes(
		attribute.Int("detect.candidates", len(candidates)),
		attribute.Int("detect.resolved", len(resolved)),
	)
	return resolved
}
