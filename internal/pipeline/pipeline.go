// Package pipeline turns PDF bytes into a polished Khmer document:
// text layer extraction, OCR fallback, normalisation, paragraph-level
// translation, polishing and export, strictly in that order.
package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valpere/khmertran/internal"
	"github.com/valpere/khmertran/internal/cache"
	"github.com/valpere/khmertran/internal/export"
	"github.com/valpere/khmertran/internal/normalize"
	"github.com/valpere/khmertran/internal/orchestrator"
	"github.com/valpere/khmertran/internal/refiner"
)

// DefaultShortTextThreshold is the extracted length, in runes, below which
// the text layer is considered missing and OCR is used instead.
const DefaultShortTextThreshold = 30

// Source tells where the extracted text came from.
type Source string

const (
	SourceTextLayer Source = "text-layer"
	SourceOCR       Source = "ocr"
)

type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
	PageCount(data []byte) (int, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (*orchestrator.OrchestratorResult, error)
}

type Exporter interface {
	Export(text string) ([]byte, error)
}

// Checker compares the polished text with its input and returns warnings.
type Checker interface {
	Check(input, output string) []string
}

// Components are the stage implementations. OCR, Refiner, Checker and Memo
// are optional.
type Components struct {
	Extractor  Extractor
	OCR        Recognizer
	Translator Translator
	Refiner    refiner.Refiner
	Exporter   Exporter
	Checker    Checker
	Memo       *cache.Memo
}

type Config struct {
	ShortTextThreshold int
	// ForceOCR skips the text layer entirely.
	ForceOCR bool
	// SkipPolish exports the translation as is.
	SkipPolish bool
	// Progress, if set, is called as each stage starts.
	Progress func(Stage)
}

// Result holds every intermediate text of a run. When polishing fails Run
// returns the Result filled up to Translated along with the error.
type Result struct {
	RunID     string
	Source    Source
	PageCount int

	Extracted  string
	Normalized string
	Translated string
	Polished   string

	Document []byte
	Filename string
	MIMEType string

	Paragraphs           int
	TranslatedParagraphs int
	PassedThrough        int
	FailedParagraphs     int
	Warnings             []string

	Duration time.Duration
}

type Pipeline struct {
	c      Components
	config Config
	logger *zap.Logger
}

func New(c Components, config Config, logger *zap.Logger) *Pipeline {
	if config.ShortTextThreshold <= 0 {
		config.ShortTextThreshold = DefaultShortTextThreshold
	}
	if c.Exporter == nil {
		c.Exporter = export.DOCXExporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{c: c, config: config, logger: logger}
}

// Acquire runs extraction, the OCR fallback and normalisation only.
func (p *Pipeline) Acquire(ctx context.Context, doc internal.Document) (*Result, error) {
	start := time.Now()
	res := p.newResult(doc)
	logger := p.logger.With(zap.String("run_id", res.RunID), zap.String("file", doc.Filename))

	if err := p.acquire(ctx, doc, res, logger); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Run executes every stage. Per-page and per-paragraph failures are absorbed
// by the stages themselves; anything returned here is a *Error.
func (p *Pipeline) Run(ctx context.Context, doc internal.Document) (*Result, error) {
	start := time.Now()
	res := p.newResult(doc)
	logger := p.logger.With(zap.String("run_id", res.RunID), zap.String("file", doc.Filename))

	if err := p.acquire(ctx, doc, res, logger); err != nil {
		return res, err
	}

	p.progress(StageTranslate)
	var tr *orchestrator.OrchestratorResult
	translated, err := p.c.Memo.Do(ctx, string(StageTranslate), []byte(res.Normalized), func(ctx context.Context) (string, error) {
		r, err := p.c.Translator.Translate(ctx, res.Normalized)
		if err != nil {
			return "", err
		}
		tr = r
		if r.Failed > 0 {
			return "", cache.NoStore(r.Text)
		}
		return r.Text, nil
	})
	if err != nil {
		return res, newError(StageTranslate, ErrTranslationService, err)
	}
	res.Translated = translated
	if tr != nil {
		res.Paragraphs = tr.Paragraphs
		res.TranslatedParagraphs = tr.Translated
		res.PassedThrough = tr.PassedThrough
		res.FailedParagraphs = tr.Failed
		logger.Info("Translation complete",
			zap.Int("paragraphs", tr.Paragraphs),
			zap.Int("translated", tr.Translated),
			zap.Int("passed_through", tr.PassedThrough),
			zap.Int("failed", tr.Failed))
	} else {
		logger.Info("Translation served from cache")
	}

	res.Polished = res.Translated
	if !p.config.SkipPolish && p.c.Refiner != nil {
		p.progress(StagePolish)
		polished, err := p.c.Refiner.Refine(ctx, res.Translated)
		if err != nil {
			logger.Error("Polishing failed", zap.Error(err))
			res.Polished = ""
			return res, newError(StagePolish, ErrPolishingService, err)
		}
		res.Polished = polished

		if p.c.Checker != nil {
			res.Warnings = p.c.Checker.Check(res.Translated, polished)
			for _, w := range res.Warnings {
				logger.Warn("Polished text differs from translation",
					zap.String("stage", string(StagePolish)),
					zap.String("warning", w))
			}
		}
	}

	p.progress(StageExport)
	data, err := p.c.Exporter.Export(res.Polished)
	if err != nil {
		return res, newError(StageExport, ErrExport, err)
	}
	res.Document = data
	res.Duration = time.Since(start)

	stats := p.c.Memo.Stats()
	logger.Info("Pipeline complete",
		zap.String("source", string(res.Source)),
		zap.Int("pages", res.PageCount),
		zap.Int("bytes", len(data)),
		zap.Int("cache_entries", stats.Entries),
		zap.Int64("cache_hits", stats.Hits),
		zap.Int64("cache_misses", stats.Misses),
		zap.Duration("duration", res.Duration))

	return res, nil
}

func (p *Pipeline) newResult(doc internal.Document) *Result {
	runID := doc.ID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Result{
		RunID:    runID,
		Filename: export.Filename,
		MIMEType: export.MIMEType,
	}
}

func (p *Pipeline) acquire(ctx context.Context, doc internal.Document, res *Result, logger *zap.Logger) error {
	if len(doc.Data) == 0 {
		return newError(StageExtract, ErrEmptyDocument, nil)
	}

	if n, err := p.c.Extractor.PageCount(doc.Data); err != nil {
		logger.Debug("Page count unavailable", zap.Error(err))
	} else {
		res.PageCount = n
	}

	var text string
	if !p.config.ForceOCR {
		p.progress(StageExtract)
		extracted, err := p.c.Memo.Do(ctx, string(StageExtract), doc.Data, func(ctx context.Context) (string, error) {
			return p.c.Extractor.Extract(ctx, doc.Data)
		})
		if err != nil {
			if ctx.Err() != nil {
				return newError(StageExtract, ErrExtraction, err)
			}
			logger.Warn("Text layer extraction failed, falling back to OCR",
				zap.String("stage", string(StageExtract)),
				zap.Error(err))
		}
		text = extracted
		res.Source = SourceTextLayer
	}

	if p.config.ForceOCR || utf8.RuneCountInString(text) < p.config.ShortTextThreshold {
		if p.c.OCR == nil {
			return newError(StageOCR, ErrRecognition, errOCRNotConfigured)
		}
		logger.Info("Using OCR",
			zap.Int("extracted_chars", utf8.RuneCountInString(text)),
			zap.Int("threshold", p.config.ShortTextThreshold))

		p.progress(StageOCR)
		recognized, err := p.c.Memo.Do(ctx, string(StageOCR), doc.Data, func(ctx context.Context) (string, error) {
			return p.c.OCR.Recognize(ctx, doc.Data)
		})
		if err != nil {
			return newError(StageOCR, ErrRecognition, err)
		}
		text = recognized
		res.Source = SourceOCR
	}

	res.Extracted = text
	if strings.TrimSpace(text) == "" {
		logger.Warn("No text found in document")
	}

	p.progress(StageNormalize)
	res.Normalized = normalize.Text(text)
	return nil
}

func (p *Pipeline) progress(s Stage) {
	if p.config.Progress != nil {
		p.config.Progress(s)
	}
}
