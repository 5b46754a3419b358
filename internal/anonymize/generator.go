// Package anonymize replaces resolved PII spans with synthetic values,
// recording every substitution in a session mapping table so the document
// stays reversible.
package anonymize

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
)

// Generator produces synthetic replacement values. In realistic mode the
// value mimics the original's format (a CPF stays a CPF, with valid check
// digits); in placeholder mode it is a numbered category tag. A seeded
// generator is fully deterministic, which the test suite relies on.
type Generator struct {
	mode     mapping.Mode
	faker    *gofakeit.Faker
	counters map[detect.Category]int
}

// NewGenerator creates a generator. A zero seed draws from a random source;
// any other seed makes realistic output reproducible.
func NewGenerator(mode mapping.Mode, seed uint64) *Generator {
	return &Generator{
		mode:     mode,
		faker:    gofakeit.New(seed),
		counters: make(map[detect.Category]int),
	}
}

// Synthetic returns a replacement value for the span. Placeholder counters
// advance on every call, so the caller must only invoke it for spans that
// actually need a fresh assignment.
func (g *Generator) Synthetic(sp detect.Span) string {
	if g.mode == mapping.ModePlaceholder {
		g.counters[sp.Category]++
		return fmt.Sprintf("[%s_%d]", sp.Category, g.counters[sp.Category])
	}
	return g.realistic(sp)
}

func (g *Generator) realistic(sp detect.Span) string {
	// Structured identifiers keep the original's punctuation layout.
	switch sp.Entity {
	case "CPF":
		return g.checksummedDigits(sp.Text, 9, cpfCheckDigits)
	case "CNPJ":
		return g.checksummedDigits(sp.Text, 12, cnpjCheckDigits)
	case "RG", "CEP", "TELEFONE":
		return g.reshapeDigits(sp.Text)
	}

	switch sp.Category {
	case detect.CategoryPerson:
		return g.faker.Name()
	case detect.CategoryEmail:
		return strings.ToLower(g.faker.Email())
	case detect.CategoryPhone:
		return g.reshapeDigits(sp.Text)
	case detect.CategoryIDNumber:
		return g.reshapeDigits(sp.Text)
	case detect.CategoryAddress:
		return fmt.Sprintf("Rua %s, %d", g.faker.LastName(), g.faker.Number(1, 2000))
	case detect.CategoryOrg:
		return g.faker.Company()
	default:
		return g.faker.Word()
	}
}

// reshapeDigits replaces every digit in the original with a random digit,
// keeping all other bytes. The result is indistinguishable in format from
// the input.
func (g *Generator) reshapeDigits(original string) string {
	var b strings.Builder
	b.Grow(len(original))
	for _, r := range original {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte('0' + g.faker.Number(0, 9)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// checksummedDigits generates bodyLen random digits, computes their check
// digits, and pours the full sequence back into the original's punctuation
// layout. Validators downstream accept the result as a well-formed number.
func (g *Generator) checksummedDigits(original string, bodyLen int, check func([]int) []int) string {
	body := make([]int, bodyLen)
	for i := range body {
		body[i] = g.faker.Number(0, 9)
	}
	digits := append(body, check(body)...)

	var b strings.Builder
	b.Grow(len(original))
	next := 0
	for _, r := range original {
		if r >= '0' && r <= '9' {
			if next < len(digits) {
				b.WriteByte(byte('0' + digits[next]))
				next++
			}
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cpfCheckDigits computes the two módulo-11 verification digits for a
// 9-digit CPF body.
func cpfCheckDigits(body []int) []int {
	d1 := mod11(body, 10)
	d2 := mod11(append(append([]int{}, body...), d1), 11)
	return []int{d1, d2}
}

// cnpjCheckDigits computes the two verification digits for a 12-digit
// CNPJ body.
func cnpjCheckDigits(body []int) []int {
	weights1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	weights2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	d1 := weighted11(body, weights1)
	d2 := weighted11(append(append([]int{}, body...), d1), weights2)
	return []int{d1, d2}
}

func mod11(digits []int, startWeight int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (startWeight - i)
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

func weighted11(digits, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}
