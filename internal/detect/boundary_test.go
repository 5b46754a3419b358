package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnWordBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		start int
		end   int
		want  bool
	}{
		{"truncated word", "João Silva", 0, 4, false},
		{"full name", "João Silva", 0, 11, true},
		{"first name", "João Silva", 0, 5, true},
		{"mid word start", "contrato", 3, 8, false},
		{"mid word end", "contrato", 0, 4, false},
		{"punctuation adjacent", "CPF: 123.456.789-00.", 5, 19, true},
		{"inside rune", "ção", 1, 3, false}, // 1 is inside the ç byte sequence
		{"whole accented word", "ção", 0, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, onWordBoundaries(tt.text, tt.start, tt.end))
		})
	}
}
