package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/llm"
	anonotel "github.com/Gunoch/anonimatizacao/internal/otel"
)

var tracer = anonotel.Tracer("github.com/Gunoch/anonimatizacao/internal/validate")

// systemPrompt asks the model for the suspect strings verbatim instead of
// byte offsets; small models get offsets wrong, so occurrences are located
// in Go against the original text.
const systemPrompt = `Você revisa documentos anonimizados em português procurando dados pessoais que escaparam da anonimização.

Dados pessoais incluem:
- Nomes completos de pessoas (ex.: João da Silva)
- CPF, CNPJ, RG e outros números de documento
- Endereços, CEPs
- Telefones e e-mails
- Nomes de empresas quando identificam uma parte

NÃO sinalize: marcadores como [PERSON_1], cargos, nomes de órgãos públicos, datas, valores monetários, palavras comuns.

Responda SOMENTE com um array JSON das strings exatas encontradas. Responda [] se nada escapou.

Exemplos:
Entrada: "O réu [PERSON_1] mora na Rua X."
Saída: ["Rua X"]

Entrada: "Nada a declarar."
Saída: []`

// Finding is one advisory detection in the anonymized output.
type Finding struct {
	Value      string `json:"value"`
	Offset     int    `json:"offset"`
	ChunkIndex int    `json:"chunk_index"`
	Source     string `json:"source"` // "llm" or "pattern"
	Severity   string `json:"severity"`
}

// Validator cross-checks anonymized text with an LLM and an independent
// regex sweep. It is advisory end to end: a chunk whose LLM call fails is
// recorded as unchecked and the run continues.
type Validator struct {
	provider      llm.Provider
	model         string
	limiter       *rate.Limiter
	scanner       *detect.Scanner
	maxChunkBytes int
}

// Option configures a Validator.
type Option func(*Validator)

// WithMaxChunkBytes overrides the per-call text budget.
func WithMaxChunkBytes(n int) Option {
	return func(v *Validator) { v.maxChunkBytes = n }
}

// WithRateLimit caps LLM calls per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(v *Validator) { v.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewValidator creates a validator. A nil provider disables the LLM pass;
// the regex sweep still runs.
func NewValidator(provider llm.Provider, model string, scanner *detect.Scanner, opts ...Option) *Validator {
	v := &Validator{
		provider:      provider,
		model:         model,
		limiter:       rate.NewLimiter(rate.Limit(2), 1),
		scanner:       scanner,
		maxChunkBytes: DefaultMaxChunkBytes,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate inspects anonymized text and returns an advisory report. Only a
// cancelled context is a hard error; everything else degrades into report
// warnings.
func (v *Validator) Validate(ctx context.Context, text string) (*Report, error) {
	ctx, span := tracer.Start(ctx, "validate.run")
	defer span.End()

	report := &Report{}

	if v.scanner != nil {
		for _, sp := range v.scanner.Scan(ctx, text) {
			report.Findings = append(report.Findings, Finding{
				Value:    sp.Text,
				Offset:   sp.Start,
				Source:   "pattern",
				Severity: patternSeverity(sp),
			})
		}
	}

	chunks := SplitChunks(text, v.maxChunkBytes)
	report.ChunksTotal = len(chunks)

	if v.provider != nil {
		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			findings, err := v.checkChunk(ctx, chunk)
			if err != nil {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("chunk %d not checked: %v", chunk.Index, err))
				log.Warn().Int("chunk", chunk.Index).Err(err).
					Msg("validator chunk failed, continuing")
				continue
			}
			report.ChunksChecked++
			report.Findings = append(report.Findings, findings...)
		}
	}

	report.finish()
	span.SetAttributes(
		attribute.Int("validate.findings", len(report.Findings)),
		attribute.Int("validate.chunks_checked", report.ChunksChecked),
		attribute.String("validate.risk", string(report.Risk)),
	)
	return report, nil
}

func (v *Validator) checkChunk(ctx context.Context, chunk Chunk) ([]Finding, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := v.provider.Generate(ctx, &llm.Request{
		Model: v.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Texto a revisar:\n" + chunk.Text},
		},
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, err
	}

	values, err := parseVerdict(resp.Content)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, val := range values {
		val = strings.TrimSpace(val)
		if val == "" || isPlaceholderToken(val) {
			continue
		}
		for _, offset := range locate(chunk.Text, val) {
			findings = append(findings, Finding{
				Value:      val,
				Offset:     chunk.Start + offset,
				ChunkIndex: chunk.Index,
				Source:     "llm",
				Severity:   SeverityWarning,
			})
		}
	}
	return findings, nil
}

// patternSeverity grades a residual regex hit. An identifier whose check
// digits verify is near-certain PII; everything else is a warning.
func patternSeverity(sp detect.Span) string {
	switch sp.Entity {
	case "CPF":
		if detect.ValidCPF(sp.Text) {
			return SeverityCritical
		}
	case "CNPJ":
		if detect.ValidCNPJ(sp.Text) {
			return SeverityCritical
		}
	case "EMAIL":
		return SeverityCritical
	}
	return SeverityWarning
}

// parseVerdict digs the JSON string array out of a model response that may
// wrap it in a think block, a code fence, or prose.
func parseVerdict(content string) ([]string, error) {
	s := stripThinkBlock(strings.TrimSpace(content))
	s = stripCodeFence(s)
	if !strings.HasPrefix(s, "[") {
		s = extractJSONArray(s)
	}

	var values []string
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, fmt.Errorf("unparseable verdict %q: %w", content, err)
	}
	return values, nil
}

// locate finds every whole-word occurrence of val in text.
func locate(text, val string) []int {
	var offsets []int
	start := 0
	for {
		idx := strings.Index(text[start:], val)
		if idx < 0 {
			return offsets
		}
		abs := start + idx
		end := abs + len(val)
		if !insideWord(text, abs, end) {
			offsets = append(offsets, abs)
		}
		start = end
	}
}

// insideWord reports whether [start,end) sits inside a larger token, e.g.
// "ilva" inside "Silva".
func insideWord(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) && isWordByte(text[start]) {
		return true
	}
	if end < len(text) && isWordByte(text[end]) && isWordByte(text[end-1]) {
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b >= 0x80
}

func isPlaceholderToken(val string) bool {
	return strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]")
}

// stripThinkBlock removes a <think>...</think> block some local models emit
// before the answer.
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	start := strings.Index(s, open)
	if start < 0 {
		return s
	}
	end := strings.Index(s, close)
	if end < 0 {
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[end+len(close):])
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// extractJSONArray finds the first [...] substring in s.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, "]")
	if end < start {
		return s
	}
	return s[start : end+1]
}
