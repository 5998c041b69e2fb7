// Package daemon watches a folder and extracts plates from new or changed
// images in the background.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/report"
	"github.com/platinummonkey/platescan/internal/state"
)

// Defaults for the watch loop
const (
	DefaultInterval    = time.Minute
	DefaultScanTimeout = 30 * time.Minute
	DefaultMaxRetries  = 3
)

// ImageProcessor runs extraction over a set of images
type ImageProcessor interface {
	ProcessImagesWithProgress(ctx context.Context, paths []string, progress batch.ProgressFunc) *batch.Result
}

// Daemon periodically scans a folder and processes new or changed images
type Daemon struct {
	processor     ImageProcessor
	state         *state.Manager
	logger        *logger.Logger
	watchDir      string
	outputDir     string
	format        report.Format
	interval      time.Duration
	scanTimeout   time.Duration
	maxRetries    int
	healthAddr    string
	pidFile       string
	httpServer    *http.Server
	listener      net.Listener
	statusTracker *StatusTracker
	control       *scanControl
}

// Config holds configuration for the daemon
type Config struct {
	Processor ImageProcessor
	State     *state.Manager
	Logger    *logger.Logger

	// WatchDir is the folder scanned for images
	WatchDir string

	// OutputDir receives one report per scan that processed images (optional)
	OutputDir    string
	ReportFormat report.Format

	Interval        time.Duration // How often to scan (default: 1 minute)
	ScanTimeout     time.Duration // Upper bound for a single scan (default: 30 minutes)
	MaxRetries      int           // Attempts per unchanged failing image (default: 3)
	HealthCheckAddr string        // Optional health check address (e.g. ":8080")
	PIDFile         string        // Optional PID file path
}

// New creates a new daemon instance
func New(cfg *Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if cfg.State == nil {
		return nil, fmt.Errorf("state manager is required")
	}
	if cfg.WatchDir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	scanTimeout := cfg.ScanTimeout
	if scanTimeout <= 0 {
		scanTimeout = DefaultScanTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	format := cfg.ReportFormat
	if format == "" {
		format = report.FormatJSON
	}

	return &Daemon{
		processor:     cfg.Processor,
		state:         cfg.State,
		logger:        log,
		watchDir:      cfg.WatchDir,
		outputDir:     cfg.OutputDir,
		format:        format,
		interval:      interval,
		scanTimeout:   scanTimeout,
		maxRetries:    maxRetries,
		healthAddr:    cfg.HealthCheckAddr,
		pidFile:       cfg.PIDFile,
		statusTracker: NewStatusTracker(cfg.WatchDir),
		control:       newScanControl(),
	}, nil
}

// Run starts the daemon and blocks until ctx is done or a shutdown signal
// is received.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.WithFields("interval", d.interval, "watch_dir", d.watchDir).Info("Starting daemon")

	if d.pidFile != "" {
		if err := d.writePIDFile(); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer d.removePIDFile()
	}

	if d.healthAddr != "" {
		if err := d.startHealthCheck(); err != nil {
			return fmt.Errorf("failed to start health check: %w", err)
		}
		defer d.stopHealthCheck()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("Running initial scan")
	d.runScan(ctx)
	d.statusTracker.SetNextScanTime(time.Now().Add(d.interval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Context canceled, shutting down")
			return ctx.Err()

		case sig := <-sigChan:
			d.logger.WithFields("signal", sig.String()).Info("Received shutdown signal")
			return nil

		case <-d.control.trigger:
			d.logger.Info("Running manually triggered scan")
			d.runScan(ctx)

		case <-ticker.C:
			d.logger.Debug("Scan interval elapsed, triggering scan")
			d.runScan(ctx)
			d.statusTracker.SetNextScanTime(time.Now().Add(d.interval))
		}
	}
}

// runScan executes a single scan with error recovery
func (d *Daemon) runScan(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, d.scanTimeout)
	defer cancel()

	d.control.begin(cancel)
	defer d.control.end()

	start := time.Now()
	summary, err := d.Scan(scanCtx)
	if err != nil {
		d.statusTracker.ScanFailed(err, time.Since(start))
		d.logger.WithFields("error", err, "duration", time.Since(start)).Error("Scan failed")
		return
	}

	d.statusTracker.ScanCompleted(*summary)
	log := d.logger.WithFields(
		"total", summary.TotalImages,
		"processed", summary.ProcessedImages,
		"skipped", summary.SkippedCount,
		"failed", summary.FailureCount,
		"plates", summary.PlatesFound,
		"duration", summary.Duration,
	)
	if summary.FailureCount > 0 {
		log.Warn("Scan completed with failures")
	} else {
		log.Info("Scan completed")
	}
}

// Scan lists the watch folder, processes images whose content changed since
// the last scan, persists the state and writes a report for the run.
func (d *Daemon) Scan(ctx context.Context) (*ScanSummary, error) {
	summary := &ScanSummary{StartTime: time.Now()}

	paths, err := imaging.ListImages(d.watchDir)
	if err != nil {
		return nil, err
	}
	summary.TotalImages = len(paths)

	if removed := d.state.Prune(paths); removed > 0 {
		d.logger.WithFields("count", removed).Debug("Dropped state for removed images")
	}

	hashes := make(map[string]string, len(paths))
	var todo []string
	for _, path := range paths {
		hash, err := state.HashFile(path)
		if err != nil {
			d.logger.WithImage(path).WithError(err).Warn("Failed to hash image, skipping")
			continue
		}
		if d.state.NeedsProcessing(path, hash, d.maxRetries) {
			hashes[path] = hash
			todo = append(todo, path)
		}
	}
	summary.SkippedCount = len(paths) - len(todo)

	d.statusTracker.ScanStarted(len(todo))

	if len(todo) > 0 {
		result := d.processor.ProcessImagesWithProgress(ctx, todo, func(done, _ int, image string) {
			d.statusTracker.UpdateProgress(done, image)
		})
		summary.RunID = result.RunID
		d.record(result, hashes, summary)

		if d.outputDir != "" {
			path, err := d.writeReport(result)
			if err != nil {
				d.logger.WithError(err).Warn("Failed to write scan report")
			} else {
				summary.ReportPath = path
			}
		}
	}

	d.state.UpdateLastScan()
	if err := d.state.Save(); err != nil {
		d.logger.WithError(err).Warn("Failed to save state")
	}

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("scan interrupted: %w", err)
	}
	return summary, nil
}

// record stores per-image outcomes. Images cut short by cancellation are left
// untouched so they are retried on the next scan.
func (d *Daemon) record(result *batch.Result, hashes map[string]string, summary *ScanSummary) {
	for i := range result.Images {
		img := &result.Images[i]
		if !img.Success && (img.Error == context.Canceled.Error() || img.Error == context.DeadlineExceeded.Error()) {
			continue
		}
		summary.ProcessedImages++
		if img.Success {
			summary.SuccessCount++
			summary.PlatesFound += len(img.Plates)
			texts := make([]string, 0, len(img.Plates))
			for _, p := range img.Plates {
				texts = append(texts, p.Text)
			}
			d.state.MarkProcessed(img.Image, hashes[img.Image], texts)
			continue
		}
		summary.FailureCount++
		d.state.MarkError(img.Image, hashes[img.Image], errors.New(img.Error))
	}
}

func (d *Daemon) writeReport(result *batch.Result) (string, error) {
	name := fmt.Sprintf("platescan-%s-%s%s",
		result.StartedAt.Format("20060102-150405"), shortID(result.RunID), d.format.Extension())
	path := filepath.Join(d.outputDir, name)
	if err := report.SaveBatch(path, d.format, result); err != nil {
		return "", err
	}
	d.logger.WithFields("path", path).Info("Wrote scan report")
	return path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// writePIDFile writes the current process ID to the configured PID file
func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	content := fmt.Sprintf("%d\n", pid)

	if err := os.WriteFile(d.pidFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	d.logger.WithFields("pid", pid, "file", d.pidFile).Info("Wrote PID file")
	return nil
}

// removePIDFile removes the PID file
func (d *Daemon) removePIDFile() {
	if d.pidFile == "" {
		return
	}

	if err := os.Remove(d.pidFile); err != nil {
		d.logger.WithFields("file", d.pidFile, "error", err).
			Warn("Failed to remove PID file")
	} else {
		d.logger.WithFields("file", d.pidFile).Info("Removed PID file")
	}
}

// Addr returns the address the health check server is listening on
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// startHealthCheck starts the health check HTTP server
func (d *Daemon) startHealthCheck() error {
	ln, err := net.Listen("tcp", d.healthAddr)
	if err != nil {
		return err
	}
	d.listener = ln

	d.httpServer = &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		d.logger.WithFields("addr", ln.Addr().String()).Info("Starting health check server")
		if err := d.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			d.logger.WithFields("error", err).Error("Health check server failed")
		}
	}()

	return nil
}

// stopHealthCheck stops the health check HTTP server
func (d *Daemon) stopHealthCheck() {
	if d.httpServer == nil {
		return
	}

	d.logger.Info("Stopping health check server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.httpServer.Shutdown(ctx); err != nil {
		d.logger.WithFields("error", err).Warn("Failed to shutdown health check server gracefully")
	} else {
		d.logger.Info("Health check server stopped")
	}
}
