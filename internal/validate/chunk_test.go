package validate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunksShortTextIsSingleChunk(t *testing.T) {
	chunks := SplitChunks("Texto curto. Nada mais.", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, "Texto curto. Nada mais.", chunks[0].Text)
}

func TestSplitChunksCutsOnSentenceBoundary(t *testing.T) {
	text := "Primeira sentença completa. Segunda sentença igualmente completa. Terceira."
	chunks := SplitChunks(text, 40)
	require.GreaterOrEqual(t, len(chunks), 2)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 40)
		assert.Equal(t, text[c.Start:c.End], c.Text, "offsets must address the original text")
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(chunks[0].Text), "."),
		"first cut should land after a sentence end, got %q", chunks[0].Text)
}

func TestSplitChunksNeverSplitsWords(t *testing.T) {
	text := strings.Repeat("palavra seguinte ", 50)
	for _, c := range SplitChunks(text, 64) {
		trimmed := strings.TrimSpace(c.Text)
		assert.True(t, strings.HasPrefix(trimmed, "palavra") || strings.HasPrefix(trimmed, "seguinte"),
			"chunk starts mid-word: %q", trimmed)
		assert.True(t, strings.HasSuffix(trimmed, "palavra") || strings.HasSuffix(trimmed, "seguinte"),
			"chunk ends mid-word: %q", trimmed)
	}
}

func TestSplitChunksCoversWholeText(t *testing.T) {
	text := "Primeira parte. " + strings.Repeat("conteúdo intermediário ", 30) + "Fim."
	chunks := SplitChunks(text, 80)

	var rebuilt strings.Builder
	last := 0
	for _, c := range chunks {
		assert.Equal(t, last, c.Start, "chunks must be contiguous")
		rebuilt.WriteString(c.Text)
		last = c.End
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitChunksNoWhitespaceFallsBackToRuneBoundary(t *testing.T) {
	text := strings.Repeat("çã", 100)
	for _, c := range SplitChunks(text, 33) {
		assert.True(t, utf8.ValidString(c.Text), "chunk split a rune: %q", c.Text)
	}
}

func TestSplitChunksEmptyInput(t *testing.T) {
	assert.Empty(t, SplitChunks("", 100))
	assert.Empty(t, SplitChunks("   \n  ", 100))
}
