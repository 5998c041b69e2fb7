package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// rawCmd represents the raw command
var rawCmd = &cobra.Command{
	Use:   "raw",
	Short: "Print the OCR detection for an image without plate matching",
	Long: `Run only the OCR step and print the normalized detection as JSON:
every recognized line and word with its confidence (0-100) and bounding box
(fractions of the image size).

The output can be saved and replayed with "platescan parse", which is handy
for tuning patterns and thresholds without paying for another OCR call.

Examples:
  platescan raw --image frame.jpg > frame.detection.json
  platescan raw --image frame.jpg --provider ollama --no-enhance`,
	RunE: runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)

	rawCmd.Flags().String("image", "", "image to recognize")
	rawCmd.Flags().Bool("no-enhance", false, "skip image enhancement before OCR")
	_ = rawCmd.MarkFlagRequired("image")
}

func runRaw(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if noEnhance, _ := cmd.Flags().GetBool("no-enhance"); noEnhance {
		cfg.Enhance = false
	}

	ctx := cmd.Context()
	proc, cleanup, err := newProcessor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	imagePath, _ := cmd.Flags().GetString("image")
	det, err := proc.Recognize(ctx, imagePath)
	if err != nil {
		return fmt.Errorf("failed to recognize %s: %w", imagePath, err)
	}

	log.WithFields("image", imagePath, "lines", len(det.Lines), "words", len(det.Words)).Info("Recognition complete")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(det)
}
