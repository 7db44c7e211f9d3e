// Package validator compares a polished text with the translation it was
// produced from. The model is only instructed to keep the structure, so
// disagreements are reported as warnings, never as failures.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/khmertran/internal/chunker"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Detector identifies the language of a text.
type Detector interface {
	Detect(text string) (string, error)
}

type Validator struct {
	det        Detector
	targetLang string
}

// New creates a Validator expecting output in targetLang. The detector is
// expensive to build; reuse the instance.
func New(det Detector, targetLang string) *Validator {
	return &Validator{det: det, targetLang: targetLang}
}

// IsValid returns true when text appears to be written in targetLang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(text, targetLang string) (bool, error) {
	if targetLang == "" || v.det == nil {
		return true, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("text is empty")
	}

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, err := v.det.Detect(text)
	if err != nil {
		return true, nil
	}

	if !strings.EqualFold(detected, targetLang) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}

// Check lists every way output departs from the structure of input and the
// expected target language. An empty result means no disagreement.
func (v *Validator) Check(input, output string) []string {
	var warnings []string

	inLines, outLines := countLines(input), countLines(output)
	if inLines != outLines {
		warnings = append(warnings, fmt.Sprintf("line count changed from %d to %d", inLines, outLines))
	}

	inParas, outParas := countParagraphs(input), countParagraphs(output)
	if inParas != outParas {
		warnings = append(warnings, fmt.Sprintf("paragraph count changed from %d to %d", inParas, outParas))
	}

	if ok, err := v.IsValid(output, v.targetLang); !ok {
		warnings = append(warnings, err.Error())
	}

	return warnings
}

func countLines(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

func countParagraphs(text string) int {
	n := 0
	for _, p := range chunker.Paragraphs(strings.TrimSpace(text)) {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
