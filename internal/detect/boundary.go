package detect

import (
	"unicode"
	"unicode/utf8"
)

// isWordRune reports whether r is part of a word for boundary purposes.
// Letters (including accented Portuguese letters) and digits count; joining
// punctuation inside identifiers does not, so "CPF:" still delimits.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isRuneBoundary reports whether byte index i falls on a UTF-8 rune boundary.
func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}

// onWordBoundaries reports whether [start, end) neither starts nor ends
// mid-word: the runes immediately outside the span, when they exist, must be
// non-word runes. Mid-word spans cause truncation and concatenation
// artifacts downstream and are always rejected.
func onWordBoundaries(text string, start, end int) bool {
	if !isRuneBoundary(text, start) || !isRuneBoundary(text, end) {
		return false
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}
