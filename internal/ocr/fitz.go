package ocr

import (
	"bytes"
	"fmt"
	"image/png"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// FitzRasterizer renders pages with MuPDF.
type FitzRasterizer struct{}

func (FitzRasterizer) Open(data []byte) (Pages, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf for rendering: %w", err)
	}
	return &fitzPages{doc: doc}, nil
}

type fitzPages struct {
	// one page renders at a time; recognition runs in parallel
	mu  sync.Mutex
	doc *fitz.Document
}

func (p *fitzPages) NumPage() int {
	return p.doc.NumPage()
}

func (p *fitzPages) PNG(page int, dpi float64) ([]byte, error) {
	p.mu.Lock()
	img, err := p.doc.ImageDPI(page, dpi)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page+1, err)
	}
	return buf.Bytes(), nil
}

func (p *fitzPages) Close() error {
	return p.doc.Close()
}
