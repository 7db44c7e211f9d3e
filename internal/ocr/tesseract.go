package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs Tesseract through gosseract. A client is created
// per image because gosseract clients cannot be shared between goroutines.
type TesseractRecognizer struct {
	Languages []string
	PSM       int
}

func NewTesseractRecognizer(languages []string, psm int) *TesseractRecognizer {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	if psm <= 0 {
		psm = DefaultPSM
	}
	return &TesseractRecognizer{Languages: languages, PSM: psm}
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Languages...); err != nil {
		return "", fmt.Errorf("failed to set ocr languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.PSM)); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load page image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return text, nil
}
