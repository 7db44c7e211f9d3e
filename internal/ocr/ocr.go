// Package ocr recognises text on scanned PDF pages. Pages are rendered to
// images by a Rasterizer and read by a Recognizer.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDPI = 200
	// DefaultPSM treats each page as a single uniform block of text.
	DefaultPSM = 6
)

// DefaultLanguages are the Tesseract models used for mixed English/Khmer pages.
var DefaultLanguages = []string{"eng", "khm"}

// ErrUnavailable means no page of the document could be rendered at all.
var ErrUnavailable = errors.New("ocr unavailable")

// Pages is an opened document that can render its pages as PNG images.
type Pages interface {
	NumPage() int
	// PNG renders the zero-based page at dpi.
	PNG(page int, dpi float64) ([]byte, error)
	Close() error
}

// Rasterizer opens PDF bytes for rendering.
type Rasterizer interface {
	Open(data []byte) (Pages, error)
}

// Recognizer reads the text in one page image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

type Config struct {
	DPI     float64
	Workers int
}

// Engine renders every page and recognises it. A page that fails to render
// or recognise contributes an empty string; the rest of the document is
// still returned.
type Engine struct {
	raster Rasterizer
	recog  Recognizer
	config Config
	logger *zap.Logger
}

func New(raster Rasterizer, recog Recognizer, config Config, logger *zap.Logger) *Engine {
	if config.DPI <= 0 {
		config.DPI = DefaultDPI
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		raster: raster,
		recog:  recog,
		config: config,
		logger: logger,
	}
}

// Recognize returns the recognised text of all pages joined by newlines in
// page order, trimmed.
func (e *Engine) Recognize(ctx context.Context, data []byte) (string, error) {
	pages, err := e.raster.Open(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer pages.Close()

	n := pages.NumPage()
	texts := make([]string, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts[i] = e.page(gctx, pages, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

func (e *Engine) page(ctx context.Context, pages Pages, i int) string {
	img, err := pages.PNG(i, e.config.DPI)
	if err != nil {
		e.logger.Warn("Failed to render page",
			zap.Int("page", i+1),
			zap.Error(err))
		return ""
	}

	text, err := e.recog.Recognize(ctx, img)
	if err != nil {
		e.logger.Warn("Failed to recognise page",
			zap.Int("page", i+1),
			zap.Error(err))
		return ""
	}

	e.logger.Debug("Page recognised",
		zap.Int("page", i+1),
		zap.Int("chars", len([]rune(text))))
	return text
}
