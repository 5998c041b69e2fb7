// Package batch runs plate extraction over single images and folders.
package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/ocr"
	"github.com/platinummonkey/platescan/internal/plate"
)

// DefaultWorkers is the number of images processed concurrently by default
const DefaultWorkers = 4

// Processor coordinates validate, prepare, recognize and parse for images
type Processor struct {
	recognizer ocr.Recognizer
	parseOpts  plate.ParseOptions
	imageOpts  imaging.Options
	workers    int
	progress   ProgressFunc
	logger     *logger.Logger
}

// ProgressFunc is called after each image completes, including images
// skipped because the context was cancelled, so done reaches total. It may be
// called from several goroutines at once.
type ProgressFunc func(done, total int, image string)

// Config holds configuration for the processor
type Config struct {
	Recognizer   ocr.Recognizer
	ParseOptions plate.ParseOptions
	Imaging      imaging.Options
	Workers      int
	Progress     ProgressFunc
	Logger       *logger.Logger
}

// New creates a new processor. The parse options are checked up front so a
// bad pattern fails once instead of once per image.
func New(cfg *Config) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if _, err := plate.New(cfg.ParseOptions.Options); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Processor{
		recognizer: cfg.Recognizer,
		parseOpts:  cfg.ParseOptions,
		imageOpts:  cfg.Imaging,
		workers:    workers,
		progress:   cfg.Progress,
		logger:     log,
	}, nil
}

// Recognize validates and prepares the image at path and returns the
// recognizer's normalized detection.
func (p *Processor) Recognize(ctx context.Context, path string) (*plate.Detection, error) {
	img, err := imaging.Prepare(path, p.imageOpts)
	if err != nil {
		return nil, err
	}

	det, err := p.recognizer.Recognize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s recognition failed: %w", p.recognizer.Name(), err)
	}
	return det, nil
}

// ProcessImage runs the full pipeline for one image. Failures are reported
// in the result rather than returned.
func (p *Processor) ProcessImage(ctx context.Context, path string) *ImageResult {
	start := time.Now()
	log := p.logger.WithImage(path)

	det, err := p.Recognize(ctx, path)
	if err != nil {
		log.WithError(err).Error("Image processing failed")
		return failed(path, err, start)
	}

	parsed, err := plate.Parse(*det, p.parseOpts)
	if err != nil {
		log.WithError(err).Error("Plate parsing failed")
		return failed(path, err, start)
	}

	for _, pl := range parsed.Plates {
		log.WithFields("plate", pl.Text, "confidence", pl.Confidence, "source", pl.Source,
			"low_confidence", pl.LowConfidence).Debug("Plate candidate")
	}

	result := &ImageResult{
		Image:                 path,
		Success:               true,
		Plates:                parsed.Plates,
		AllDetectedText:       parsed.AllDetectedText,
		LowConfidenceIncluded: parsed.LowConfidenceIncluded,
		Duration:              time.Since(start),
	}

	log.WithFields(
		"plates", len(result.Plates),
		"lines", len(result.AllDetectedText),
		"duration", result.Duration,
	).Info("Image processed")

	return result
}

// ProcessImages processes paths with a bounded worker pool. Results keep the
// order of paths. Images not started before ctx is cancelled are marked
// failed with the context error.
func (p *Processor) ProcessImages(ctx context.Context, paths []string) *Result {
	return p.ProcessImagesWithProgress(ctx, paths, p.progress)
}

// ProcessImagesWithProgress is ProcessImages reporting to progress instead
// of the configured ProgressFunc.
func (p *Processor) ProcessImagesWithProgress(ctx context.Context, paths []string, progress ProgressFunc) *Result {
	result := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Images:    make([]ImageResult, len(paths)),
	}
	log := p.logger.WithRunID(result.RunID)
	log.WithFields("images", len(paths), "workers", p.workers).Info("Starting batch")

	var g errgroup.Group
	g.SetLimit(p.workers)

	var done atomic.Int32
	finish := func(path string) {
		n := int(done.Add(1))
		if progress != nil {
			progress(n, len(paths), path)
		}
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			result.Images[i] = *failed(path, err, time.Now())
			finish(path)
			continue
		}
		g.Go(func() error {
			defer finish(path)
			if err := ctx.Err(); err != nil {
				result.Images[i] = *failed(path, err, time.Now())
				return nil
			}
			result.Images[i] = *p.ProcessImage(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(result.StartedAt)

	s := result.Summary()
	log.WithFields(
		"total", s.TotalImages,
		"successful", s.Successful,
		"failed", s.Failed,
		"plates", s.TotalPlates,
		"duration", result.Duration,
	).Info("Batch completed")

	return result
}

// ProcessFolder processes the supported images in dir in name order. A
// positive limit processes only the first limit images.
func (p *Processor) ProcessFolder(ctx context.Context, dir string, limit int) (*Result, error) {
	paths, err := imaging.ListImages(dir)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return p.ProcessImages(ctx, paths), nil
}
