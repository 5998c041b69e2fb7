package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/plate"
	"github.com/platinummonkey/platescan/internal/report"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <detection.json>",
	Short: "Extract plates from a saved OCR detection",
	Long: `Run plate extraction on a detection previously written by
"platescan raw". No image is read and no OCR provider is called.

Examples:
  platescan parse frame.detection.json
  platescan parse frame.detection.json --confidence 80 --json
  platescan parse frame.detection.json --pattern '^KA\d{2}[A-Z]{1,2}\d{4}$'`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	addExtractionFlags(parseCmd)
	addOutputFlags(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	format, err := outputFormat(cmd, cfg.OutputFormat, cfg.OutputPath)
	if err != nil {
		return err
	}

	start := time.Now()
	det, err := loadDetection(args[0])
	if err != nil {
		return err
	}

	parsed, err := plate.Parse(*det, cfg.ParseOptions())
	if err != nil {
		return err
	}

	result := &batch.ImageResult{
		Image:                 args[0],
		Success:               true,
		Plates:                parsed.Plates,
		AllDetectedText:       parsed.AllDetectedText,
		LowConfidenceIncluded: parsed.LowConfidenceIncluded,
		Duration:              time.Since(start),
	}
	log.WithFields("detection", args[0], "plates", len(result.Plates)).Debug("Detection parsed")

	return emit(cmd.OutOrStdout(), cfg.OutputPath, format,
		func(w io.Writer) error { return report.WriteImage(w, format, result) },
		func(path string) error { return report.SaveImage(path, format, result) },
	)
}

// loadDetection reads a detection JSON document from path.
func loadDetection(path string) (*plate.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detection: %w", err)
	}

	var det plate.Detection
	if err := json.Unmarshal(data, &det); err != nil {
		return nil, fmt.Errorf("failed to parse detection %s: %w", path, err)
	}
	return &det, nil
}
