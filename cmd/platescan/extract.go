package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/plate"
	"github.com/platinummonkey/platescan/internal/report"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract plate numbers from an image or a folder of images",
	Long: `Extract vehicle registration plates from camera images.

This command:
1. Validates the image (type, size)
2. Optionally enhances it (denoise, contrast, sharpen)
3. Runs OCR with the configured provider
4. Cleans, merges and matches the recognized lines against plate layouts
5. Prints or saves a report

A folder is processed concurrently; the report keeps the images in name
order. The command exits with status 1 if any image failed.

Examples:
  # Extract from a single image
  platescan extract --image frame.jpg

  # Use a custom plate pattern and print JSON
  platescan extract --image frame.jpg --pattern '^[A-Z]{2}\d{2}[A-Z]{2}\d{4}$' --json

  # Include plates between 30 and 60 confidence, tagged as low confidence
  platescan extract --image frame.jpg --include-low-confidence

  # Process the first 10 images of a folder into a spreadsheet
  platescan extract --folder ./frames --limit 10 --format xlsx --output plates.xlsx

  # Use a vision model instead of Tesseract
  platescan extract --folder ./frames --provider openai --model gpt-4o-mini`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("image", "", "image to process")
	extractCmd.Flags().String("folder", "", "folder of images to process")
	extractCmd.Flags().Int("limit", 0, "process only the first N images of the folder (0 = all)")
	addExtractionFlags(extractCmd)
	addOutputFlags(extractCmd)
	extractCmd.Flags().Int("workers", batch.DefaultWorkers, "images processed concurrently")

	extractCmd.MarkFlagsMutuallyExclusive("image", "folder")
	extractCmd.MarkFlagsOneRequired("image", "folder")
}

// addExtractionFlags registers the flags that shape plate matching.
func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("confidence", plate.DefaultThreshold, "minimum confidence (0-100) for a plate")
	cmd.Flags().String("pattern", "", "custom plate regular expression (replaces the built-in layouts)")
	cmd.Flags().Bool("include-low-confidence", false, "also report plates above --low-confidence-threshold")
	cmd.Flags().Float64("low-confidence-threshold", plate.DefaultLowConfidenceThreshold, "floor for low-confidence plates")
	cmd.Flags().Bool("no-enhance", false, "skip image enhancement before OCR")
}

// addOutputFlags registers report format and destination flags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "table", "output format (table, json, csv, xlsx, pdf, yaml)")
	cmd.Flags().Bool("json", false, "shorthand for --format json")
	cmd.Flags().Bool("csv", false, "shorthand for --format csv")
	cmd.Flags().StringP("output", "o", "", "write the report to this file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("json", "csv")
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if noEnhance, _ := cmd.Flags().GetBool("no-enhance"); noEnhance {
		cfg.Enhance = false
	}

	format, err := outputFormat(cmd, cfg.OutputFormat, cfg.OutputPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	proc, cleanup, err := newProcessor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	imagePath, _ := cmd.Flags().GetString("image")
	if imagePath != "" {
		log.WithFields("image", imagePath, "provider", cfg.OCR.Provider).Info("Extracting plates")

		result := proc.ProcessImage(ctx, imagePath)
		err := emit(cmd.OutOrStdout(), cfg.OutputPath, format,
			func(w io.Writer) error { return report.WriteImage(w, format, result) },
			func(path string) error { return report.SaveImage(path, format, result) },
		)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !result.Success {
			return fmt.Errorf("failed to process %s: %s", imagePath, result.Error)
		}
		return nil
	}

	folder, _ := cmd.Flags().GetString("folder")
	limit, _ := cmd.Flags().GetInt("limit")
	log.WithFields("folder", folder, "limit", limit, "provider", cfg.OCR.Provider).Info("Extracting plates")

	result, err := proc.ProcessFolder(ctx, folder, limit)
	if err != nil {
		return err
	}
	if len(result.Images) == 0 {
		log.WithFields("folder", folder).Warn("No supported images found")
	}

	err = emit(cmd.OutOrStdout(), cfg.OutputPath, format,
		func(w io.Writer) error { return report.WriteBatch(w, format, result) },
		func(path string) error { return report.SaveBatch(path, format, result) },
	)
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if result.HasFailures() {
		s := result.Summary()
		return fmt.Errorf("%d of %d images failed", s.Failed, s.TotalImages)
	}
	return nil
}

// outputFormat resolves --json and --csv against the configured format.
// Binary formats need a file destination.
func outputFormat(cmd *cobra.Command, configured, outputPath string) (report.Format, error) {
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSV, _ := cmd.Flags().GetBool("csv")
	return selectFormat(configured, asJSON, asCSV, outputPath)
}

func selectFormat(configured string, asJSON, asCSV bool, outputPath string) (report.Format, error) {
	if asJSON && asCSV {
		return "", fmt.Errorf("--json and --csv cannot be combined")
	}

	name := configured
	switch {
	case asJSON:
		name = string(report.FormatJSON)
	case asCSV:
		name = string(report.FormatCSV)
	}

	format, err := report.ParseFormat(name)
	if err != nil {
		return "", err
	}
	if format.Binary() && outputPath == "" {
		return "", fmt.Errorf("%s output requires --output", format)
	}
	return format, nil
}

// emit renders to stdout, or saves to outputPath when one is set.
func emit(stdout io.Writer, outputPath string, format report.Format, render func(io.Writer) error, save func(string) error) error {
	if outputPath == "" {
		return render(stdout)
	}
	if err := save(outputPath); err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	fmt.Fprintf(stdout, "Report written to %s\n", outputPath)
	return nil
}
