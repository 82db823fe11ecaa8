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

	"github.com/valpere/gradefactory/internal/batch"
	"github.com/valpere/gradefactory/internal/config"
	"github.com/valpere/gradefactory/internal/extract"
	"github.com/valpere/gradefactory/internal/orchestrator"
	"github.com/valpere/gradefactory/internal/report"
	"github.com/valpere/gradefactory/internal/rubric"
	"github.com/valpere/gradefactory/internal/sink"
)

var (
	inputDir   string
	outputDir  string
	rubricPath string

	backendA         string
	backendB         string
	moderatorBackend string

	tempA         float64
	tempB         float64
	tempModerator float64
	timeout       string

	outputFormat string
	plainText    bool
	concurrency  int

	dbPath    string
	noHistory bool
	force     bool
	uploadRef string
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade every PDF paper in a folder",
	Long: `Grade every PDF paper in the input folder against a rubric.

The rubric is a PDF (its text is used as-is) or a JSON file:
  {"rubric": "...", "question": "...", "correct_answers": ["...", "..."]}

Backends (select with --backend, default from GRADEFACTORY_BACKEND):
  - xai         xAI Grok (XAI_API_KEY)
  - gemini      Google Gemini (GEMINI_API_KEY or a credentials file)
  - openrouter  OpenRouter (OPENROUTER_API_KEY)
  - ollama      Ollama (self-hosted)

Grader B and the moderator use the same backend unless --backend-b or
--moderator-backend is given.

Output is one file per paper in the output folder. PDF output uses a
Latin-1 font; use --format txt for lossless UTF-8.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		backends, err := buildBackends(cfg, backendA, backendB, moderatorBackend)
		if err != nil {
			return &orchestrator.ConfigurationError{Reason: "invalid backend selection", Err: err}
		}

		orchCfg := orchestrator.Config{
			Timeout:              cfg.Timeout,
			TemperatureA:         tempA,
			TemperatureB:         tempB,
			ModeratorTemperature: tempModerator,
		}
		if timeout != "" {
			d, err := parseTimeout(timeout)
			if err != nil {
				return err
			}
			orchCfg.Timeout = d
		}

		orch := orchestrator.New(backends.graderA, backends.graderB, backends.moderator, orchCfg)
		if err := orch.Validate(); err != nil {
			return err
		}

		writer, err := report.NewWriter(outputFormat)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		extractor := extract.New()
		spec, err := rubric.Load(ctx, rubricPath, extractor)
		if err != nil {
			return err
		}

		runner := &batch.Runner{
			Extractor: extractor,
			Evaluator: orch,
			Writer:    writer,
			Out:       os.Stdout,
			Err:       os.Stderr,
		}

		if !noHistory && dbPath != "" {
			db, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			runner.History = db
		}

		if uploadRef != "" {
			s, err := sink.NewS3(ctx, uploadRef, sink.Options{
				Endpoint:  cfg.S3Endpoint,
				Region:    cfg.S3Region,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
			})
			if err != nil {
				return err
			}
			runner.Sink = s
		}

		fmt.Fprintf(os.Stderr, "Graders: %s (t=%.2f), %s (t=%.2f); moderator: %s (t=%.2f)\n",
			backends.graderA.Name(), tempA, backends.graderB.Name(), tempB, backends.moderator.Name(), tempModerator)

		summary, err := runner.Run(ctx, batch.Options{
			InputDir:    inputDir,
			OutputDir:   outputDir,
			Rubric:      spec,
			Format:      outputFormat,
			Plain:       plainText,
			Concurrency: concurrency,
			Force:       force,
		})
		if err != nil {
			return err
		}
		if summary.RunID != "" {
			fmt.Fprintf(os.Stderr, "Run ID: %s\n", summary.RunID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	defaults := orchestrator.DefaultConfig()

	gradeCmd.Flags().StringVarP(&inputDir, "input", "i", "", "Input folder with PDF papers (required)")
	gradeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output folder for evaluations (required)")
	gradeCmd.Flags().StringVarP(&rubricPath, "rubric", "r", "", "Rubric file, .pdf or .json (required)")
	gradeCmd.MarkFlagRequired("input")
	gradeCmd.MarkFlagRequired("output")
	gradeCmd.MarkFlagRequired("rubric")

	gradeCmd.Flags().StringVar(&backendA, "backend", "", "Backend for grader A (xai, gemini, openrouter, ollama)")
	gradeCmd.Flags().StringVar(&backendB, "backend-b", "", "Backend for grader B (default: same as --backend)")
	gradeCmd.Flags().StringVar(&moderatorBackend, "moderator-backend", "", "Backend for the moderator (default: same as --backend)")

	gradeCmd.Flags().Float64Var(&tempA, "temp-a", defaults.TemperatureA, "Sampling temperature of grader A")
	gradeCmd.Flags().Float64Var(&tempB, "temp-b", defaults.TemperatureB, "Sampling temperature of grader B")
	gradeCmd.Flags().Float64Var(&tempModerator, "temp-moderator", defaults.ModeratorTemperature, "Sampling temperature of the moderator")
	gradeCmd.Flags().StringVar(&timeout, "timeout", "", "Deadline per paper, e.g. 90s or 5m (default from config)")

	gradeCmd.Flags().StringVar(&outputFormat, "format", "pdf", "Output format: pdf or txt")
	gradeCmd.Flags().BoolVar(&plainText, "plain", false, "Flatten markdown in evaluations to plain text")
	gradeCmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of papers graded at once")

	gradeCmd.Flags().StringVar(&dbPath, "db", "./data/gradefactory.db", "Database path for grading history")
	gradeCmd.Flags().BoolVar(&noHistory, "no-history", false, "Disable grading history and reuse of earlier results")
	gradeCmd.Flags().BoolVar(&force, "force", false, "Regrade papers even when a stored result exists")
	gradeCmd.Flags().StringVar(&uploadRef, "upload", "", "Upload each evaluation to s3://bucket/prefix")
}
