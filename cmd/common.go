/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/valpere/khmertran/internal/cache"
	"github.com/valpere/khmertran/internal/config"
	"github.com/valpere/khmertran/internal/detector"
	"github.com/valpere/khmertran/internal/extract"
	"github.com/valpere/khmertran/internal/ocr"
	"github.com/valpere/khmertran/internal/orchestrator"
	"github.com/valpere/khmertran/internal/pipeline"
	"github.com/valpere/khmertran/internal/refiner"
	"github.com/valpere/khmertran/internal/translator"
	"github.com/valpere/khmertran/internal/validator"
)

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig reads the effective configuration. A missing polishing
// credential is reported as a configuration error before anything runs.
func loadConfig(polish bool) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, pipeline.ConfigError(err)
	}
	if err := cfg.Validate(polish); err != nil {
		return nil, pipeline.ConfigError(err)
	}
	return cfg, nil
}

// buildTranslator constructs the translation service named in the config.
func buildTranslator(cfg *config.Config) (translator.TranslationService, translator.ServiceConfig, error) {
	svcCfg := translator.ServiceConfig{
		Timeout: cfg.Translate.Timeout,
	}

	switch cfg.Translate.Service {
	case "google":
		svcCfg.Credentials = cfg.Google.Credentials
		svcCfg.APIKey = cfg.Google.APIKey
		svcCfg.Project = cfg.Google.Project
		return translator.NewGoogleService(), svcCfg, nil
	case "mymemory":
		svcCfg.Email = cfg.MyMemory.Email
		return translator.NewMyMemoryService(cfg.MyMemory.Email), svcCfg, nil
	default:
		return nil, svcCfg, pipeline.ConfigError(fmt.Errorf("unknown translation service: %s", cfg.Translate.Service))
	}
}

// buildCompleter constructs the polishing model client.
func buildCompleter(ctx context.Context, cfg *config.Config) (refiner.Completer, error) {
	p := cfg.Polish
	switch p.Provider {
	case "openai":
		return refiner.NewOpenAICompleter(ctx, p.APIKey, p.Model, p.BaseURL, p.Timeout)
	case "gemini":
		return refiner.NewGeminiCompleter(ctx, p.APIKey, p.Model)
	case "openrouter":
		return refiner.NewOpenRouterCompleter(p.APIKey, p.Model, p.BaseURL)
	case "ollama":
		return refiner.NewOllamaCompleter(p.Model, cfg.Ollama.URL), nil
	default:
		return nil, pipeline.ConfigError(fmt.Errorf("unknown polish provider: %s", p.Provider))
	}
}

type pipelineOptions struct {
	forceOCR  bool
	translate bool
	polish    bool
	progress  func(pipeline.Stage)
}

// buildPipeline wires every stage from cfg. The returned closer releases
// clients that hold connections.
func buildPipeline(ctx context.Context, cfg *config.Config, opts pipelineOptions) (*pipeline.Pipeline, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	memo := cache.New(cfg.Cache.Size, cfg.Cache.TTL)

	engine := ocr.New(
		ocr.FitzRasterizer{},
		ocr.NewTesseractRecognizer(cfg.OCR.Languages, cfg.OCR.PSM),
		ocr.Config{DPI: cfg.OCR.DPI, Workers: cfg.OCR.Workers},
		logger.Named("ocr"),
	)

	components := pipeline.Components{
		Extractor: extract.New(logger.Named("extract")),
		OCR:       engine,
		Memo:      memo,
	}

	if opts.translate {
		service, svcCfg, err := buildTranslator(cfg)
		if err != nil {
			return nil, closeAll, err
		}
		if c, ok := service.(io.Closer); ok {
			closers = append(closers, c)
		}

		det := detector.New()
		if len(cfg.Translate.DetectLanguages) > 0 {
			langs, err := detector.Languages(cfg.Translate.DetectLanguages)
			if err != nil {
				return nil, closeAll, pipeline.ConfigError(err)
			}
			det = detector.NewFor(langs...)
		}
		components.Translator = orchestrator.New(service, svcCfg, det, orchestrator.OrchestratorConfig{
			SourceLang:  cfg.Translate.Source,
			TargetLang:  cfg.Translate.Target,
			ChunkSize:   cfg.Translate.ChunkSize,
			Workers:     cfg.Translate.Workers,
			Timeout:     cfg.Translate.Timeout,
			MaxAttempts: cfg.Translate.MaxAttempts,
		}, logger.Named("translate"))
		components.Checker = validator.New(det, cfg.Translate.Target)
	}

	if opts.polish {
		completer, err := buildCompleter(ctx, cfg)
		if err != nil {
			return nil, closeAll, err
		}
		if c, ok := completer.(io.Closer); ok {
			closers = append(closers, c)
		}
		components.Refiner = refiner.NewPolisher(completer, refiner.PolisherConfig{
			Temperature: cfg.Polish.Temperature,
			MaxChars:    cfg.Polish.MaxChars,
			Workers:     cfg.Polish.Workers,
			Timeout:     cfg.Polish.Timeout,
			MaxAttempts: cfg.Polish.MaxAttempts,
		}, logger.Named("polish"))
	}

	p := pipeline.New(components, pipeline.Config{
		ShortTextThreshold: cfg.Pipeline.ShortTextThreshold,
		ForceOCR:           opts.forceOCR,
		SkipPolish:         !opts.polish,
		Progress:           opts.progress,
	}, logger)

	return p, closeAll, nil
}
