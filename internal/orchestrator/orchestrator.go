// Package orchestrator translates a whole document paragraph by paragraph.
// Only paragraphs detected in the source language are sent to the
// translation service; everything else, and anything that fails, passes
// through unchanged.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/khmertran/internal/chunker"
	"github.com/valpere/khmertran/internal/retry"
	"github.com/valpere/khmertran/internal/translator"
)

// Detector identifies the language of a paragraph.
type Detector interface {
	Detect(text string) (string, error)
}

type OrchestratorConfig struct {
	SourceLang  string
	TargetLang  string
	ChunkSize   int
	Workers     int
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// OrchestratorResult is the translated document with routing counters.
type OrchestratorResult struct {
	Text          string
	Paragraphs    int
	Translated    int
	PassedThrough int
	Failed        int
}

type Orchestrator struct {
	service    translator.TranslationService
	serviceCfg translator.ServiceConfig
	detector   Detector
	config     OrchestratorConfig
	logger     *zap.Logger
}

func New(service translator.TranslationService, serviceCfg translator.ServiceConfig, det Detector, config OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if config.SourceLang == "" {
		config.SourceLang = "en"
	}
	if config.TargetLang == "" {
		config.TargetLang = "km"
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = chunker.DefaultWindowSize
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = retry.DefaultAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = retry.DefaultInitialDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		service:    service,
		serviceCfg: serviceCfg,
		detector:   det,
		config:     config,
		logger:     logger,
	}
}

type outcome int

const (
	outcomeEmpty outcome = iota
	outcomeTranslated
	outcomeForeign
	outcomeFailed
)

// Translate returns text with every source-language paragraph translated.
// Paragraph count and order always match the input. The only error is the
// context's.
func (o *Orchestrator) Translate(ctx context.Context, text string) (*OrchestratorResult, error) {
	paragraphs := chunker.Paragraphs(text)
	out := make([]string, len(paragraphs))
	outcomes := make([]outcome, len(paragraphs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for i, p := range paragraphs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i], outcomes[i] = o.paragraph(gctx, i, p)
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &OrchestratorResult{
		Text:       strings.Join(out, chunker.ParagraphSeparator),
		Paragraphs: len(paragraphs),
	}
	for _, oc := range outcomes {
		switch oc {
		case outcomeTranslated:
			result.Translated++
		case outcomeForeign:
			result.PassedThrough++
		case outcomeFailed:
			result.PassedThrough++
			result.Failed++
		}
	}
	return result, nil
}

func (o *Orchestrator) paragraph(ctx context.Context, index int, p string) (string, outcome) {
	if strings.TrimSpace(p) == "" {
		return p, outcomeEmpty
	}

	lang, err := o.detector.Detect(p)
	if err != nil {
		o.logger.Debug("Language detection failed, keeping paragraph",
			zap.Int("paragraph", index),
			zap.Error(err))
		return p, outcomeForeign
	}
	if lang != o.config.SourceLang {
		return p, outcomeForeign
	}

	windows := chunker.Windows(p, o.config.ChunkSize)
	var sb strings.Builder
	for ci, w := range windows {
		translated, err := o.translateChunk(ctx, w)
		if err != nil {
			o.logger.Warn("Translation failed, keeping paragraph",
				zap.Int("paragraph", index),
				zap.Int("chunk", ci),
				zap.String("service", o.service.Name()),
				zap.Error(err))
			return p, outcomeFailed
		}
		sb.WriteString(translated)
	}

	return sb.String(), outcomeTranslated
}

var errEmptyTranslation = errors.New("service returned an empty translation")

func (o *Orchestrator) translateChunk(ctx context.Context, chunk string) (string, error) {
	req := translator.TranslateRequest{
		Text:       chunk,
		SourceLang: o.config.SourceLang,
		TargetLang: o.config.TargetLang,
	}
	cfg := retry.Config{
		Attempts:     o.config.MaxAttempts,
		InitialDelay: o.config.RetryDelay,
		Timeout:      o.config.Timeout,
	}

	attempts := 0
	var translated string
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		attempts++
		res, err := o.service.Translate(ctx, o.serviceCfg, req)
		if err != nil {
			return err
		}
		if res.Error != "" {
			return fmt.Errorf("%s: %s", res.ServiceName, res.Error)
		}
		if res.TranslatedText == "" && strings.TrimSpace(chunk) != "" {
			return errEmptyTranslation
		}
		o.logger.Debug("Chunk translated",
			zap.String("service", res.ServiceName),
			zap.Int("chars", len([]rune(chunk))),
			zap.Float64("confidence", res.Confidence),
			zap.Duration("latency", res.Latency))
		translated = res.TranslatedText
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return translated, nil
}
