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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/khmertran/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string
	verbose bool

	v      = config.New()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "khmertran",
	Short: "PDF to Khmer translator",
	Long: `A CLI application that translates PDF documents into Khmer.

Text is taken from the PDF text layer, or recognised with Tesseract when the
document is scanned. English paragraphs are translated, the result is
polished by a language model and exported as a Word document.

Use "khmertran translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}

		l, err := buildLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose development logging")

	rootCmd.PersistentFlags().Float64("dpi", 200, "OCR rasterization resolution")
	rootCmd.PersistentFlags().Int("ocr-workers", 1, "Pages recognised concurrently")
	rootCmd.PersistentFlags().Int("threshold", 30, "Extracted length (characters) below which OCR is used")
	bindPersistentFlag("ocr.dpi", "dpi")
	bindPersistentFlag("ocr.workers", "ocr-workers")
	bindPersistentFlag("pipeline.short_text_threshold", "threshold")
}

func bindPersistentFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// bindFlag exposes a config key as a command flag. The flag wins over the
// config file and environment when it is set.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}
