// Package validate runs an advisory second pass over anonymized output,
// looking for PII the main pipeline missed. Findings never change the
// document; they are reported for a human to act on.
package validate

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkBytes bounds the text sent to the LLM per call.
const DefaultMaxChunkBytes = 2000

// Chunk is a contiguous slice of the document, cut on sentence or
// whitespace boundaries so no word is ever split across chunks.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// sentenceEnders terminate a sentence when followed by whitespace.
const sentenceEnders = ".!?"

// SplitChunks cuts text into chunks of at most maxBytes. Each cut lands
// after a sentence end when one is in range, otherwise on the last
// whitespace, and as a last resort on a rune boundary. Offsets are byte
// positions into the original text.
func SplitChunks(text string, maxBytes int) []Chunk {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxChunkBytes
	}

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		remaining := len(text) - pos
		if remaining <= maxBytes {
			chunks = appendChunk(chunks, text, pos, len(text))
			break
		}

		window := text[pos : pos+maxBytes]
		cut := sentenceCut(window)
		if cut <= 0 {
			cut = lastWhitespaceCut(window)
		}
		if cut <= 0 {
			// No whitespace in the whole window; fall back to the last
			// rune boundary at or before the byte limit.
			limit := pos + maxBytes
			for limit > pos && !utf8.RuneStart(text[limit]) {
				limit--
			}
			cut = limit - pos
			if cut == 0 {
				cut = maxBytes
			}
		}
		chunks = appendChunk(chunks, text, pos, pos+cut)
		pos += cut
	}
	return chunks
}

func appendChunk(chunks []Chunk, text string, start, end int) []Chunk {
	piece := text[start:end]
	if strings.TrimSpace(piece) == "" {
		return chunks
	}
	return append(chunks, Chunk{
		Index: len(chunks),
		Start: start,
		End:   end,
		Text:  piece,
	})
}

// sentenceCut returns the byte position just after the last sentence end
// in window that is followed by whitespace, or 0 if none exists.
func sentenceCut(window string) int {
	for i := len(window) - 2; i > 0; i-- {
		if strings.IndexByte(sentenceEnders, window[i]) >= 0 && isSpaceByte(window[i+1]) {
			return i + 2
		}
	}
	return 0
}

// lastWhitespaceCut returns the position after the last whitespace run in
// window, or 0 if the window contains none.
func lastWhitespaceCut(window string) int {
	for i := len(window) - 1; i > 0; i-- {
		if isSpaceByte(window[i]) {
			return i + 1
		}
	}
	return 0
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
