package anonymize

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
	anonotel "github.com/Gunoch/anonimatizacao/internal/otel"
)

var tracer = anonotel.Tracer("github.com/Gunoch/anonimatizacao/internal/anonymize")

// maxGenerateAttempts bounds collision retries before falling back to a
// deterministic disambiguating suffix.
const maxGenerateAttempts = 8

// Engine applies substitutions to a document. All assignments are staged
// first and committed to the mapping table only after the whole document
// succeeds: a cancelled or failed run leaves the table exactly as it was.
// Substitution is serialized internally, so one engine can serve concurrent
// document workers.
type Engine struct {
	mu  sync.Mutex
	gen *Generator
}

// NewEngine creates an engine around a generator.
func NewEngine(gen *Generator) *Engine {
	return &Engine{gen: gen}
}

// Apply replaces every span in text with a synthetic value, reusing prior
// assignments from the table and recording new ones. Spans must already be
// resolved (ordered, non-overlapping); replacement walks right to left so
// earlier offsets stay valid as the text shrinks and grows.
func (e *Engine) Apply(ctx context.Context, text string, spans detect.ResolvedSpanSet, tbl *mapping.Table) (string, error) {
	ctx, span := tracer.Start(ctx, "anonymize.apply")
	defer span.End()

	if err := spans.Validate(len(text)); err != nil {
		return "", fmt.Errorf("refusing unresolved span set: %w", err)
	}

	if tag := placeholderShaped.FindString(text); tag != "" {
		log.Warn().Str("token", tag).
			Msg("document already contains placeholder-shaped tokens; was it anonymized before?")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	type replacement struct {
		span      detect.Span
		synthetic string
	}

	staged := make([]replacement, 0, len(spans))
	stagedEntries := make([]mapping.Entry, 0, len(spans))
	stagedByKey := make(map[string]string, len(spans))
	stagedInUse := make(map[string]struct{}, len(spans))

	for _, sp := range spans {
		key := string(sp.Category) + "\x00" + sp.Text

		if syn, ok := tbl.Lookup(sp.Text, sp.Category); ok {
			staged = append(staged, replacement{sp, syn})
			continue
		}
		if syn, ok := stagedByKey[key]; ok {
			staged = append(staged, replacement{sp, syn})
			continue
		}

		syn, err := e.fresh(text, sp, tbl, stagedInUse)
		if err != nil {
			return "", err
		}
		stagedByKey[key] = syn
		stagedInUse[syn] = struct{}{}
		stagedEntries = append(stagedEntries, mapping.Entry{
			Original:        sp.Text,
			Synthetic:       syn,
			Category:        sp.Category,
			FirstSeenOffset: sp.Start,
		})
		staged = append(staged, replacement{sp, syn})
	}

	// Nothing has touched the table yet; a cancellation here aborts cleanly.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, entry := range stagedEntries {
		tbl.Insert(entry)
	}

	// Right to left, so offsets to the left of each splice stay valid.
	out := text
	for i := len(staged) - 1; i >= 0; i-- {
		r := staged[i]
		out = out[:r.span.Start] + r.synthetic + out[r.span.End:]
	}

	span.SetAttributes(
		attribute.Int("anonymize.spans", len(spans)),
		attribute.Int("anonymize.new_entries", len(stagedEntries)),
	)
	return out, nil
}

// placeholderShaped matches tokens that look like placeholder substitutions.
var placeholderShaped = regexp.MustCompile(`\[[A-Z_]+_\d+\]`)

// fresh generates a synthetic not yet used by the table, this run's staged
// assignments, or the document itself, regenerating on collision. The
// document check keeps reversal exact: a synthetic equal to pre-existing
// text would be rewritten by Reverse along with the real substitutions.
func (e *Engine) fresh(text string, sp detect.Span, tbl *mapping.Table, stagedInUse map[string]struct{}) (string, error) {
	var last string
	// Placeholder counters advance on every attempt and the document is
	// finite, so the loop always clears it; realistic values get a bounded
	// number of draws before the suffix fallback.
	for attempt := 0; attempt < maxGenerateAttempts || e.gen.mode == mapping.ModePlaceholder; attempt++ {
		syn := e.gen.Synthetic(sp)
		if !e.collides(syn, text, tbl, stagedInUse) {
			return syn, nil
		}
		last = syn
		log.Debug().Str("synthetic", syn).Str("category", string(sp.Category)).
			Msg("synthetic collision, regenerating")
	}
	if last == "" {
		return "", fmt.Errorf("could not generate a synthetic for category %s", sp.Category)
	}
	// Realistic values only: a numeric suffix keeps the value plausible.
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s %d", last, n)
		if !e.collides(candidate, text, tbl, stagedInUse) {
			return candidate, nil
		}
	}
}

// collides reports whether a candidate synthetic is already taken by the
// table, this run's staged values, or text already present in the document
// (which covers syn == sp.Text).
func (e *Engine) collides(syn, text string, tbl *mapping.Table, stagedInUse map[string]struct{}) bool {
	if _, ok := stagedInUse[syn]; ok {
		return true
	}
	if tbl.SyntheticInUse(syn) {
		return true
	}
	return strings.Contains(text, syn)
}
