package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/daemon"
	"github.com/platinummonkey/platescan/internal/report"
	"github.com/platinummonkey/platescan/internal/state"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a folder and extract plates from new images",
	Long: `Run platescan as a long-running process over a folder that keeps
receiving camera frames.

Each scan lists the folder, hashes every supported image and processes only
new or changed ones. Results are kept in a JSON state file so restarts do
not redo work; images that fail are retried on later scans up to
--max-retries times until their content changes.

Features:
- Periodic scans at a configurable interval
- One report per scan written to --output-dir (optional)
- Graceful shutdown on SIGTERM/SIGINT
- Optional HTTP endpoints: /health, /ready, /status,
  POST /api/scan/trigger and POST /api/scan/cancel
- Optional PID file for process management

Examples:
  # Scan every minute
  platescan watch --folder /srv/camera/frames

  # Scan every 30 seconds with a status server and JSON reports
  platescan watch --folder ./frames --interval 30s \
    --health-addr :8080 --output-dir ./reports

  # Trigger a scan immediately
  curl -X POST http://localhost:8080/api/scan/trigger`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("folder", "", "folder to watch")
	watchCmd.Flags().Duration("interval", daemon.DefaultInterval, "scan interval (e.g., 30s, 5m)")
	watchCmd.Flags().Duration("scan-timeout", daemon.DefaultScanTimeout, "upper bound for a single scan")
	watchCmd.Flags().Int("max-retries", daemon.DefaultMaxRetries, "attempts per failing image before it is left alone")
	watchCmd.Flags().String("health-addr", "", "status HTTP address (e.g., :8080)")
	watchCmd.Flags().String("pid-file", "", "PID file path")
	watchCmd.Flags().String("state-file", "", "state file path (default is $HOME/.platescan-state.json)")
	watchCmd.Flags().String("output-dir", "", "directory for per-scan reports")
	watchCmd.Flags().String("report-format", string(report.FormatJSON), "per-scan report format")
	watchCmd.Flags().Int("workers", batch.DefaultWorkers, "images processed concurrently")
	addExtractionFlags(watchCmd)
	_ = watchCmd.MarkFlagRequired("folder")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if noEnhance, _ := cmd.Flags().GetBool("no-enhance"); noEnhance {
		cfg.Enhance = false
	}

	formatName, _ := cmd.Flags().GetString("report-format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	folder, _ := cmd.Flags().GetString("folder")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	scanTimeout, _ := cmd.Flags().GetDuration("scan-timeout")

	stateStore, err := state.LoadOrCreate(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("failed to initialize state: %w", err)
	}

	ctx := cmd.Context()
	proc, cleanup, err := newProcessor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := daemon.New(&daemon.Config{
		Processor:       proc,
		State:           stateStore,
		Logger:          log,
		WatchDir:        folder,
		OutputDir:       outputDir,
		ReportFormat:    format,
		Interval:        cfg.WatchInterval,
		ScanTimeout:     scanTimeout,
		MaxRetries:      maxRetries,
		HealthCheckAddr: cfg.HealthAddr,
		PIDFile:         cfg.PIDFile,
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	log.WithFields(
		"folder", folder,
		"interval", cfg.WatchInterval,
		"state_file", cfg.StateFile,
		"provider", cfg.OCR.Provider,
	).Info("Starting watch")

	// Run blocks until shutdown signal
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon error: %w", err)
	}

	log.Info("Watch shutdown complete")
	return nil
}
