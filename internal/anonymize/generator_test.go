package anonymize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
)

func TestPlaceholderNumbering(t *testing.T) {
	g := NewGenerator(mapping.ModePlaceholder, 0)

	assert.Equal(t, "[PERSON_1]", g.Synthetic(detect.Span{Category: detect.CategoryPerson, Text: "João"}))
	assert.Equal(t, "[PERSON_2]", g.Synthetic(detect.Span{Category: detect.CategoryPerson, Text: "Maria"}))
	assert.Equal(t, "[ID_NUMBER_1]", g.Synthetic(detect.Span{Category: detect.CategoryIDNumber, Text: "123.456.789-00"}))
	assert.Equal(t, "[PERSON_3]", g.Synthetic(detect.Span{Category: detect.CategoryPerson, Text: "Pedro"}))
}

func TestRealisticCPFHasValidCheckDigits(t *testing.T) {
	g := NewGenerator(mapping.ModeRealistic, 42)

	for i := 0; i < 20; i++ {
		syn := g.Synthetic(detect.Span{
			Category: detect.CategoryIDNumber, Entity: "CPF", Text: "123.456.789-00",
		})
		require.Regexp(t, `^\d{3}\.\d{3}\.\d{3}-\d{2}$`, syn, "punctuation layout must survive")
		assert.True(t, detect.ValidCPF(syn), "generated CPF %s must carry valid check digits", syn)
	}
}

func TestRealisticCNPJHasValidCheckDigits(t *testing.T) {
	g := NewGenerator(mapping.ModeRealistic, 42)

	for i := 0; i < 20; i++ {
		syn := g.Synthetic(detect.Span{
			Category: detect.CategoryIDNumber, Entity: "CNPJ", Text: "12.345.678/0001-99",
		})
		require.Regexp(t, `^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`, syn)
		assert.True(t, detect.ValidCNPJ(syn), "generated CNPJ %s must carry valid check digits", syn)
	}
}

func TestRealisticPreservesDigitLayout(t *testing.T) {
	g := NewGenerator(mapping.ModeRealistic, 7)

	tests := []struct {
		entity string
		text   string
		layout string
	}{
		{"CEP", "80000-100", `^\d{5}-\d{3}$`},
		{"TELEFONE", "(11) 98765-4321", `^\(\d{2}\) \d{5}-\d{4}$`},
		{"RG", "12.345.678-9", `^\d{2}\.\d{3}\.\d{3}-\d$`},
		{"CPF", "12345678900", `^\d{11}$`}, // unformatted input keeps no punctuation
	}
	for _, tt := range tests {
		syn := g.Synthetic(detect.Span{Category: detect.CategoryIDNumber, Entity: tt.entity, Text: tt.text})
		assert.Regexp(t, tt.layout, syn, "entity %s", tt.entity)
	}
}

func TestRealisticSeededIsDeterministic(t *testing.T) {
	sp := detect.Span{Category: detect.CategoryPerson, Text: "João Silva"}
	a := NewGenerator(mapping.ModeRealistic, 99).Synthetic(sp)
	b := NewGenerator(mapping.ModeRealistic, 99).Synthetic(sp)
	assert.Equal(t, a, b)
}

func TestRealisticEmailShape(t *testing.T) {
	g := NewGenerator(mapping.ModeRealistic, 3)
	syn := g.Synthetic(detect.Span{Category: detect.CategoryEmail, Text: "joao@example.com"})
	assert.Contains(t, syn, "@")
	assert.Equal(t, strings.ToLower(syn), syn)
}
