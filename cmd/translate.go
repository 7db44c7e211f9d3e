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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/valpere/khmertran/internal"
	"github.com/valpere/khmertran/internal/export"
	"github.com/valpere/khmertran/internal/pipeline"
)

var (
	inputFile  string
	outputFile string
	textOut    string
	draftOut   string
	noPolish   bool
	forceOCR   bool
)

var stageOrder = []pipeline.Stage{
	pipeline.StageExtract,
	pipeline.StageOCR,
	pipeline.StageNormalize,
	pipeline.StageTranslate,
	pipeline.StagePolish,
	pipeline.StageExport,
}

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a PDF into a polished Khmer Word document",
	Long: `Translate a PDF into Khmer.

Stages:
  1. extract    read the PDF text layer
  2. ocr        recognise scanned pages when the text layer is too short
  3. normalize  collapse irregular whitespace
  4. translate  translate English paragraphs (Google Cloud Translation or MyMemory)
  5. polish     fix grammar and flow with a language model
  6. export     write a .docx with one paragraph per line

Polishing providers:
  - openai      OpenAI (OPENAI_API_KEY)
  - gemini      Google Gemini (GEMINI_API_KEY)
  - openrouter  OpenRouter (OPENROUTER_API_KEY)
  - ollama      Ollama (self-hosted, no key)

When polishing fails the unpolished translation is written to --draft-out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		cfg, err := loadConfig(!noPolish)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		ctx := cmd.Context()

		bar := newStageBar("translating")
		p, closeAll, err := buildPipeline(ctx, cfg, pipelineOptions{
			forceOCR:  forceOCR,
			translate: true,
			polish:    !noPolish,
			progress: func(s pipeline.Stage) {
				bar.Describe(string(s))
				_ = bar.Set(slices.Index(stageOrder, s) + 1)
			},
		})
		defer closeAll()
		if err != nil {
			return err
		}

		doc := internal.Document{
			ID:        uuid.New().String(),
			Filename:  filepath.Base(inputFile),
			Data:      data,
			Timestamp: time.Now(),
		}

		res, runErr := p.Run(ctx, doc)
		_ = bar.Finish()

		if runErr != nil {
			if errors.Is(runErr, pipeline.ErrPolishingService) && res != nil && draftOut != "" {
				if err := writeOutput(draftOut, []byte(res.Translated)); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to write draft: %v\n", err)
				} else {
					fmt.Fprintf(os.Stderr, "Polishing failed; unpolished translation written to %s\n", draftOut)
				}
			}
			return runErr
		}

		if err := writeOutput(outputFile, res.Document); err != nil {
			return err
		}
		if textOut != "" {
			if err := writeOutput(textOut, []byte(res.Polished)); err != nil {
				return err
			}
		}
		if draftOut != "" {
			if err := writeOutput(draftOut, []byte(res.Translated)); err != nil {
				return err
			}
		}

		fmt.Printf("Successfully translated %s (%s, %d pages)\n", doc.Filename, res.Source, res.PageCount)
		fmt.Printf("Paragraphs: %d translated, %d kept as is\n", res.TranslatedParagraphs, res.PassedThrough)
		if len(res.Warnings) > 0 {
			fmt.Printf("Polishing warnings: %d (see log)\n", len(res.Warnings))
		}
		fmt.Printf("Written %s (%s)\n", outputFile, res.MIMEType)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input PDF file (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", export.Filename, "Output .docx file")
	translateCmd.Flags().StringVar(&textOut, "text-out", "", "Also write the polished text to this file")
	translateCmd.Flags().StringVar(&draftOut, "draft-out", "", "Write the unpolished translation to this file")
	translateCmd.Flags().BoolVar(&noPolish, "no-polish", false, "Export the translation without polishing")
	translateCmd.Flags().BoolVar(&forceOCR, "force-ocr", false, "Ignore the text layer and always use OCR")

	translateCmd.Flags().String("service", "google", "Translation service: google, mymemory")
	translateCmd.Flags().StringP("source", "s", "en", "Source language code")
	translateCmd.Flags().StringP("target", "t", "km", "Target language code")
	translateCmd.Flags().Int("chunk-size", 4500, "Maximum characters per translation request")
	translateCmd.Flags().Int("workers", 4, "Paragraphs translated concurrently")
	translateCmd.Flags().Int("max-retries", 3, "Total attempts per chunk including the first (1 = no retries)")
	translateCmd.Flags().StringP("credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().String("mymemory-email", "", "MyMemory email (for higher limits)")
	translateCmd.Flags().StringSlice("detect-languages", nil, "Restrict language detection to these codes, e.g. en,fr (default all)")

	translateCmd.Flags().String("provider", "openai", "Polishing provider: openai, gemini, openrouter, ollama")
	translateCmd.Flags().String("model", "", "Polishing model (provider default if empty)")
	translateCmd.Flags().Int("polish-max-chars", 12000, "Maximum characters per polishing request (0 = whole text)")
	translateCmd.Flags().String("ollama-url", "http://localhost:11434", "Ollama base URL")

	bindFlag(translateCmd, "translate.service", "service")
	bindFlag(translateCmd, "translate.source", "source")
	bindFlag(translateCmd, "translate.target", "target")
	bindFlag(translateCmd, "translate.chunk_size", "chunk-size")
	bindFlag(translateCmd, "translate.workers", "workers")
	bindFlag(translateCmd, "translate.max_attempts", "max-retries")
	bindFlag(translateCmd, "google.credentials", "credentials")
	bindFlag(translateCmd, "mymemory.email", "mymemory-email")
	bindFlag(translateCmd, "translate.detect_languages", "detect-languages")
	bindFlag(translateCmd, "polish.provider", "provider")
	bindFlag(translateCmd, "polish.model", "model")
	bindFlag(translateCmd, "polish.max_chars", "polish-max-chars")
	bindFlag(translateCmd, "ollama.url", "ollama-url")

	translateCmd.MarkFlagRequired("input")
}

func newStageBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(len(stageOrder),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
