package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/llm"
)

// scriptedProvider returns canned responses in order, then errors.
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.responses) {
		return nil, errors.New("no scripted response left")
	}
	return &llm.Response{Content: p.responses[i]}, nil
}

func TestValidateFlagsLLMFindings(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`["Rua das Acácias"]`}}
	v := NewValidator(provider, "test-model", nil, WithRateLimit(1000, 10))

	report, err := v.Validate(context.Background(), "O réu mora na Rua das Acácias desde 2020.")
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)

	f := report.Findings[0]
	assert.Equal(t, "Rua das Acácias", f.Value)
	assert.Equal(t, len("O réu mora na "), f.Offset)
	assert.Equal(t, "llm", f.Source)
	assert.Equal(t, RiskMedium, report.Risk)
	assert.Equal(t, 1.0, report.Coverage)
}

func TestValidatePatternSweepFindsResidualCPF(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`[]`}}
	v := NewValidator(provider, "test-model", detect.MustNewScanner(), WithRateLimit(1000, 10))

	report, err := v.Validate(context.Background(), "Restou o CPF 123.456.789-09 no texto.")
	require.NoError(t, err)
	require.NotEmpty(t, report.Findings)

	f := report.Findings[0]
	assert.Equal(t, "123.456.789-09", f.Value)
	assert.Equal(t, "pattern", f.Source)
	assert.Equal(t, SeverityCritical, f.Severity, "checksum-valid CPF is critical")
	assert.Equal(t, RiskHigh, report.Risk)
}

func TestValidateInvalidChecksumIsWarning(t *testing.T) {
	v := NewValidator(nil, "", detect.MustNewScanner())

	report, err := v.Validate(context.Background(), "Número residual 123.456.789-00 no texto.")
	require.NoError(t, err)
	require.NotEmpty(t, report.Findings)
	assert.Equal(t, SeverityWarning, report.Findings[0].Severity)
}

func TestValidateDegradesPerChunk(t *testing.T) {
	provider := &scriptedProvider{
		responses: []string{``, `[]`},
		errs:      []error{llm.ErrProviderNotAvailable, nil},
	}
	v := NewValidator(provider, "test-model", nil,
		WithRateLimit(1000, 10), WithMaxChunkBytes(60))

	report, err := v.Validate(context.Background(),
		"Primeira sentença bem longa do documento. Segunda sentença igualmente longa aqui.")
	require.NoError(t, err)
	assert.Equal(t, 2, report.ChunksTotal)
	assert.Equal(t, 1, report.ChunksChecked)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "chunk 0")
	assert.Less(t, report.Coverage, 1.0)
}

func TestValidateCleanDocumentIsLowRisk(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`[]`}}
	v := NewValidator(provider, "test-model", detect.MustNewScanner(), WithRateLimit(1000, 10))

	report, err := v.Validate(context.Background(), "O processo seguiu seus trâmites normais.")
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Equal(t, RiskLow, report.Risk)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"plain array", `["João Silva"]`, []string{"João Silva"}, false},
		{"empty array", `[]`, []string{}, false},
		{"code fence", "```json\n[\"João\"]\n```", []string{"João"}, false},
		{"think block", "<think>analisando...</think>[\"João\"]", []string{"João"}, false},
		{"prose wrapper", `Encontrei o seguinte: ["João"] no texto.`, []string{"João"}, false},
		{"garbage", `não sei responder`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocateSkipsMidWordMatches(t *testing.T) {
	offsets := locate("asd@yandex.ru e sd@yandex.ru", "sd@yandex.ru")
	require.Len(t, offsets, 1)
	assert.Equal(t, 16, offsets[0])
}

func TestValidateIgnoresPlaceholderTokens(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`["[PERSON_1]", "Rua X"]`}}
	v := NewValidator(provider, "test-model", nil, WithRateLimit(1000, 10))

	report, err := v.Validate(context.Background(), "[PERSON_1] mora na Rua X.")
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "Rua X", report.Findings[0].Value)
}
