// Package detector identifies the language of a paragraph. Khmer is
// recognised by script because lingua-go ships no Khmer model; every other
// language goes through lingua.
package detector

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Khmer is the ISO 639-1 code reported for Khmer-script text.
const Khmer = "km"

// ErrUndetermined is returned when no language can be assigned to the text.
var ErrUndetermined = errors.New("language could not be determined")

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// NewFor builds a detector restricted to the given languages. A smaller
// language set loads faster and is less prone to confusing close relatives.
func NewFor(languages ...lingua.Language) *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &Detector{detector: detector}
}

// Languages resolves ISO 639-1 codes for NewFor. Khmer needs no model and
// is skipped; at least two other languages must remain.
func Languages(codes []string) ([]lingua.Language, error) {
	var languages []lingua.Language
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == Khmer {
			continue
		}
		iso := lingua.GetIsoCode639_1FromValue(code)
		if iso == lingua.UnknownIsoCode639_1 {
			return nil, fmt.Errorf("unknown language code %q", code)
		}
		languages = append(languages, lingua.GetLanguageFromIsoCode639_1(iso))
	}
	if len(languages) < 2 {
		return nil, fmt.Errorf("at least two languages besides %s are required, got %d", Khmer, len(languages))
	}
	return languages, nil
}

// Detect returns the lower-case ISO 639-1 code of text.
func (d *Detector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetermined
	}
	if IsKhmer(text) {
		return Khmer, nil
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", ErrUndetermined
	}
	return strings.ToLower(lang.IsoCode639_1().String()), nil
}

// IsKhmer reports whether Khmer-script letters make up the majority of the
// letters in text.
func IsKhmer(text string) bool {
	khmer, letters := 0, 0
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Khmer, r):
			khmer++
			letters++
		case unicode.IsLetter(r):
			letters++
		}
	}
	return letters > 0 && khmer*2 > letters
}
