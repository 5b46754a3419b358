package detect

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	anonotel "github.com/Gunoch/anonimatizacao/internal/otel"
)

var tracer = anonotel.Tracer("github.com/Gunoch/anonimatizacao/internal/detect")

const (
	// DefaultMinScore is the minimum confidence below which a pattern match
	// is discarded unless boosted by nearby context words.
	DefaultMinScore = 0.5

	// ContextBoost is the score added when a recognizer context word appears
	// near a match.
	ContextBoost = 0.35

	// ContextWindowChars bounds the search for context words around a match.
	ContextWindowChars = 100
)

// Scanner detects structurally regular PII using compiled regex recognizers.
// Same input text always yields the same span set. Safe for concurrent use
// after construction.
type Scanner struct {
	patterns []PIIPattern
	minScore float64
}

// ScannerOption configures a Scanner.
type ScannerOption func(*scannerConfig)

type scannerConfig struct {
	patternFile string
	extra       []RecognizerConfig
	minScore    float64
}

// WithPatternFile layers recognizers from a YAML file over the embedded
// defaults. A missing file is silently skipped.
func WithPatternFile(path string) ScannerOption {
	return func(c *scannerConfig) { c.patternFile = path }
}

// WithRecognizers layers caller-supplied recognizer definitions on top of
// defaults and any pattern file.
func WithRecognizers(recognizers []RecognizerConfig) ScannerOption {
	return func(c *scannerConfig) { c.extra = recognizers }
}

// WithMinScore overrides the default minimum confidence threshold.
func WithMinScore(score float64) ScannerOption {
	return func(c *scannerConfig) { c.minScore = score }
}

// NewScanner creates a pattern scanner. Without options it compiles the
// embedded pt-BR defaults. Any malformed pattern or unknown category is a
// *ConfigError naming the recognizer: configuration problems surface here,
// at startup, never per document.
func NewScanner(opts ...ScannerOption) (*Scanner, error) {
	var cfg scannerConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, err
	}

	layers := [][]RecognizerConfig{defaults}
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, err
		}
		if rf != nil {
			layers = append(layers, rf.Recognizers)
		}
	}
	if len(cfg.extra) > 0 {
		layers = append(layers, cfg.extra)
	}

	compiled, err := CompilePatterns(MergeRecognizers(layers...))
	if err != nil {
		return nil, err
	}

	minScore := DefaultMinScore
	if cfg.minScore > 0 {
		minScore = cfg.minScore
	}

	return &Scanner{patterns: compiled, minScore: minScore}, nil
}

// MustNewScanner is like NewScanner but panics on error. For zero-config
// startup where the embedded defaults are expected to always compile.
func MustNewScanner(opts ...ScannerOption) *Scanner {
	s, err := NewScanner(opts...)
	if err != nil {
		panic("detect.NewScanner: " + err.Error())
	}
	return s
}

// PatternCount reports how many compiled recognizers the scanner carries.
func (s *Scanner) PatternCount() int { return len(s.patterns) }

// Scan returns one span per accepted regex match. Matches failing a checksum
// gate or landing mid-word are dropped; overlap between categories is left
// for the Resolver. The result is deterministic for a given text.
func (s *Scanner) Scan(ctx context.Context, text string) []Span {
	_, span := tracer.Start(ctx, "detect.pattern_scan")
	defer span.End()

	var spans []Span
	for _, p := range s.patterns {
		for _, m := range p.Pattern.FindAllStringIndex(text, -1) {
			value := text[m[0]:m[1]]

			if !onWordBoundaries(text, m[0], m[1]) {
				continue
			}
			if p.Checksum != nil && !p.Checksum(value) {
				continue
			}

			confidence := boostWithContext(text, m[0], p.Score, p.ContextWords)
			if confidence < s.minScore {
				continue
			}

			spans = append(spans, Span{
				Start:      m[0],
				End:        m[1],
				Category:   p.Category,
				Entity:     p.Entity,
				Source:     SourcePattern,
				Text:       value,
				Confidence: confidence,
			})
		}
	}

	span.SetAttributes(attribute.Int("detect.pattern_spans", len(spans)))
	return spans
}

// boostWithContext raises the base score when a recognizer context word
// occurs within ContextWindowChars of the match position.
func boostWithContext(text string, position int, base float64, contextWords []string) float64 {
	if len(contextWords) == 0 {
		return base
	}
	start := position - ContextWindowChars
	if start < 0 {
		start = 0
	}
	end := position + ContextWindowChars
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for _, cw := range contextWords {
		if strings.Contains(window, strings.ToLower(cw)) {
			return base + ContextBoost
		}
	}
	return base
}
