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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/khmertran/internal"
)

var (
	extractInput    string
	extractOutput   string
	extractForceOCR bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and normalise the text of a PDF",
	Long: `Extract the text of a PDF without translating it.

The text layer is used when it holds enough text; otherwise pages are
recognised with Tesseract (eng+khm). The result is normalised and written to
--output, or to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(extractInput)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		ctx := cmd.Context()
		p, closeAll, err := buildPipeline(ctx, cfg, pipelineOptions{forceOCR: extractForceOCR})
		defer closeAll()
		if err != nil {
			return err
		}

		res, err := p.Acquire(ctx, internal.Document{
			ID:        uuid.New().String(),
			Filename:  filepath.Base(extractInput),
			Data:      data,
			Timestamp: time.Now(),
		})
		if err != nil {
			return err
		}

		if extractOutput == "" {
			fmt.Println(res.Normalized)
			return nil
		}
		if err := writeOutput(extractOutput, []byte(res.Normalized)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Extracted %d pages via %s to %s\n", res.PageCount, res.Source, extractOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "Input PDF file (required)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output text file (stdout if empty)")
	extractCmd.Flags().BoolVar(&extractForceOCR, "force-ocr", false, "Ignore the text layer and always use OCR")

	extractCmd.MarkFlagRequired("input")
}
