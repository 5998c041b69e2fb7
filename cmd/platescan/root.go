package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/config"
	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/ocr"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "platescan",
	Short: "Extract vehicle number plates from camera images",
	Long: `platescan reads the text in photos of vehicles and reports the
registration plate numbers it finds, with a confidence for each.

Features:
  - Local Tesseract OCR or vision models (Ollama, OpenAI, Anthropic, Google)
  - Built-in Indian plate layouts or a custom regular expression
  - Optional low-confidence plates, tagged as such
  - Folder batches with table, JSON, CSV, XLSX, PDF or YAML reports
  - Watch mode for folders that keep receiving frames
  - Accuracy evaluation against a CSV of expected plates`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.platescan.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("provider", "tesseract", "OCR provider (tesseract, ollama, openai, anthropic, google)")
	rootCmd.PersistentFlags().String("model", "", "vision model name (default depends on provider)")
}

// loadConfig merges defaults, the config file, PLATESCAN_* environment
// variables and the command's flags, then builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:            cfg.LogLevel,
		Format:           cfg.LogFormat,
		EnableStacktrace: cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, log, nil
}

// newProcessor builds the recognizer and batch processor for cfg. The
// returned cleanup releases the recognizer.
func newProcessor(ctx context.Context, cfg *config.Config, log *logger.Logger) (*batch.Processor, func(), error) {
	rec, err := ocr.NewRecognizer(ctx, cfg.RecognizerConfig(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	cleanup := func() {
		if c, ok := rec.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.WithError(err).Warn("Failed to close recognizer")
			}
		}
	}

	progress := func(done, total int, image string) {
		log.WithImage(image).Debugf("Progress %d/%d", done, total)
	}

	proc, err := batch.New(&batch.Config{
		Recognizer:   rec,
		ParseOptions: cfg.ParseOptions(),
		Imaging:      imagingOptions(cfg),
		Workers:      cfg.Workers,
		Progress:     progress,
		Logger:       log,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create processor: %w", err)
	}

	return proc, cleanup, nil
}

func imagingOptions(cfg *config.Config) imaging.Options {
	return imaging.Options{
		Enhance:      cfg.Enhance,
		MaxDimension: cfg.MaxDimension,
		JPEGQuality:  imaging.DefaultJPEGQuality,
	}
}
