// Package chunker splits text into pieces that respect an external
// service's request-size ceiling. Windows cuts a single paragraph into
// fixed-size rune windows for the translation service; Pack groups whole
// paragraphs into batches for the polishing model.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultWindowSize is the translation request ceiling, in runes.
	DefaultWindowSize = 4500

	// ParagraphSeparator delimits paragraphs in normalised text.
	ParagraphSeparator = "\n\n"
)

// Windows cuts text into contiguous windows of at most size runes. Windows
// are not aligned to sentence or word boundaries, and concatenating the
// result reproduces text exactly.
//
// Empty text yields no windows. If size ≤ 0 it is treated as unlimited.
func Windows(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var windows []string
	start, count := 0, 0
	for i := range text {
		if count == size {
			windows = append(windows, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(windows, text[start:])
}

// Pack groups consecutive paragraphs into batches whose joined length
// (paragraphs joined by ParagraphSeparator) is at most maxChars runes.
// A paragraph longer than maxChars is never split; it forms a batch of its
// own. Joining the returned batches with ParagraphSeparator reproduces
// strings.Join(paragraphs, ParagraphSeparator).
//
// If maxChars ≤ 0 all paragraphs form one batch.
func Pack(paragraphs []string, maxChars int) []string {
	if len(paragraphs) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(paragraphs, ParagraphSeparator)}
	}

	sepLen := utf8.RuneCountInString(ParagraphSeparator)

	var batches []string
	var current []string
	currentLen := 0

	for _, p := range paragraphs {
		pLen := utf8.RuneCountInString(p)
		if len(current) > 0 && currentLen+sepLen+pLen > maxChars {
			batches = append(batches, strings.Join(current, ParagraphSeparator))
			current, currentLen = nil, 0
		}
		if len(current) > 0 {
			currentLen += sepLen
		}
		current = append(current, p)
		currentLen += pLen
	}

	return append(batches, strings.Join(current, ParagraphSeparator))
}

// Paragraphs splits text on ParagraphSeparator. Empty segments are kept so
// the paragraph count and spacing survive a split/join round trip.
func Paragraphs(text string) []string {
	return strings.Split(text, ParagraphSeparator)
}
