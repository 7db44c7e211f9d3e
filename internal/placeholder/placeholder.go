// Package placeholder shields text a language model must not rewrite (web
// addresses, e-mail addresses) behind numbered markers [PH0], [PH1], …
// Restore puts the originals back after the model has answered.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// e-mail addresses
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// URLs with a scheme or a leading www., up to the next space; trailing
	// sentence punctuation is not part of the address
	reURL = regexp.MustCompile(`(?:https?://|www\.)[^\s<>"]*[^\s<>".,;:!?)\]។]`)

	// placeholder reference in model output
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces URLs and e-mail addresses with numbered placeholders in
// the order they are found. It returns the modified text and the captured
// originals for Restore.
func Protect(text string) (string, []string) {
	var markers []string

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(markers))
		markers = append(markers, match)
		return id
	}

	// URLs first: they may contain an @.
	text = reURL.ReplaceAllStringFunc(text, replace)
	text = reEmail.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// Restore substitutes [PHn] markers in text back with the originals captured
// by Protect. Unknown indices leave the placeholder as is.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint is appended to the system instruction when a request
// carries markers.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as it appears. Do not translate, move, or remove them."
}

// Validate returns the indices of markers that are missing from text.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
