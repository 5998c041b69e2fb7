package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/evaluate"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score extraction against a CSV of expected plates",
	Long: `Run extraction over a labelled set of images and compare the best
plate of each image with the expected one.

The expectations file is a CSV of "image,expected" rows (a header row is
optional). Relative image paths are resolved against --folder, or against
the directory of the CSV file when --folder is not set. Plates are compared
without spaces and case-insensitively; the report shows the exact-match
accuracy and the character error rate (edit distance / expected length).

Examples:
  platescan evaluate --expected labels.csv --folder ./frames
  platescan evaluate --expected labels.csv --provider anthropic --json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("expected", "", "CSV file of image,expected rows")
	evaluateCmd.Flags().String("folder", "", "folder that relative image paths are resolved against")
	evaluateCmd.Flags().Bool("json", false, "print the evaluation as JSON")
	evaluateCmd.Flags().Int("workers", batch.DefaultWorkers, "images processed concurrently")
	addExtractionFlags(evaluateCmd)
	_ = evaluateCmd.MarkFlagRequired("expected")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if noEnhance, _ := cmd.Flags().GetBool("no-enhance"); noEnhance {
		cfg.Enhance = false
	}

	expectedFile, _ := cmd.Flags().GetString("expected")
	expectations, err := evaluate.LoadExpectations(expectedFile)
	if err != nil {
		return err
	}
	if len(expectations) == 0 {
		return fmt.Errorf("no expectations in %s", expectedFile)
	}

	folder, _ := cmd.Flags().GetString("folder")
	if folder == "" {
		folder = filepath.Dir(expectedFile)
	}
	expectations = resolveExpectations(expectations, folder)

	paths := make([]string, len(expectations))
	for i, e := range expectations {
		paths[i] = e.Image
	}

	ctx := cmd.Context()
	proc, cleanup, err := newProcessor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	log.WithFields("images", len(paths), "provider", cfg.OCR.Provider).Info("Starting evaluation")
	result := proc.ProcessImages(ctx, paths)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	rep := evaluate.Evaluate(expectations, result.Images)
	log.WithFields("accuracy", rep.Accuracy, "mean_cer", rep.MeanCER, "failed", rep.Failed).Info("Evaluation complete")

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else if err := rep.WriteTable(cmd.OutOrStdout()); err != nil {
		return err
	}

	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d images could not be evaluated", rep.Failed, rep.Total)
	}
	return nil
}

// resolveExpectations joins relative image paths onto dir.
func resolveExpectations(expectations []evaluate.Expectation, dir string) []evaluate.Expectation {
	resolved := make([]evaluate.Expectation, len(expectations))
	for i, e := range expectations {
		if !filepath.IsAbs(e.Image) {
			e.Image = filepath.Join(dir, e.Image)
		}
		resolved[i] = e
	}
	return resolved
}
