package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Gunoch/anonimatizacao/internal/anonymize"
	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
	anonotel "github.com/Gunoch/anonimatizacao/internal/otel"
)

var tracer = anonotel.Tracer("github.com/Gunoch/anonimatizacao/internal/pipeline")

// Stage names reported through ProgressFunc.
const (
	StageDetect     = "detect"
	StageResolve    = "resolve"
	StageSubstitute = "substitute"
)

// ProgressFunc receives stage notifications during a run. May be nil.
type ProgressFunc func(stage string)

// NERDetector is the model-based detector the pipeline fans out to
// alongside the pattern scanner.
type NERDetector interface {
	Detect(ctx context.Context, text string) ([]detect.Span, error)
}

// Pipeline runs the full anonymization flow for one document at a time.
// Safe for concurrent use across documents of the same session.
type Pipeline struct {
	scanner  *detect.Scanner
	ner      NERDetector // nil disables the model pass entirely
	resolver *detect.Resolver
	engine   *anonymize.Engine
	progress ProgressFunc
}

// New assembles a pipeline from its stages.
func New(scanner *detect.Scanner, ner NERDetector, resolver *detect.Resolver, engine *anonymize.Engine) *Pipeline {
	return &Pipeline{
		scanner:  scanner,
		ner:      ner,
		resolver: resolver,
		engine:   engine,
	}
}

// WithProgress sets a progress callback and returns the pipeline.
func (p *Pipeline) WithProgress(fn ProgressFunc) *Pipeline {
	p.progress = fn
	return p
}

// Result is the outcome of anonymizing one document.
type Result struct {
	Text     string
	Spans    detect.ResolvedSpanSet
	Degraded bool
	Warnings []string
}

// Anonymize detects and substitutes PII in text, recording substitutions in
// the session table. Pattern and model detection run concurrently; an
// unavailable model degrades the run to pattern-only with a warning instead
// of failing it.
func (p *Pipeline) Anonymize(ctx context.Context, text string, tbl *mapping.Table) (*Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.anonymize")
	defer span.End()

	result := &Result{}
	p.report(StageDetect)

	var (
		wg           sync.WaitGroup
		patternSpans []detect.Span
		modelSpans   []detect.Span
		nerErr       error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		patternSpans = p.scanner.Scan(ctx, text)
	}()

	if p.ner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			modelSpans, nerErr = p.ner.Detect(ctx, text)
		}()
	}
	wg.Wait()

	if nerErr != nil {
		if !errors.Is(nerErr, detect.ErrModelUnavailable) {
			return nil, fmt.Errorf("model detection: %w", nerErr)
		}
		result.Degraded = true
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("NER model unavailable, pattern-only detection: %v", nerErr))
		log.Warn().Err(nerErr).Msg("degrading to pattern-only detection")
	}

	p.report(StageResolve)
	candidates := append(patternSpans, modelSpans...)
	resolved := p.resolver.Resolve(ctx, text, candidates)

	p.report(StageSubstitute)
	out, err := p.engine.Apply(ctx, text, resolved, tbl)
	if err != nil {
		return nil, err
	}

	result.Text = out
	result.Spans = resolved
	span.SetAttributes(
		attribute.Int("pipeline.spans", len(resolved)),
		attribute.Bool("pipeline.degraded", result.Degraded),
	)
	return result, nil
}

func (p *Pipeline) report(stage string) {
	if p.progress != nil {
		p.progress(stage)
	}
}
