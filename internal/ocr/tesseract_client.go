package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/plate"
)

// TesseractRecognizer runs the local Tesseract engine through gosseract and
// reads lines and words from its HOCR output.
type TesseractRecognizer struct {
	logger    *logger.Logger
	languages []string
}

// NewTesseractRecognizer creates a Tesseract recognizer
func NewTesseractRecognizer(cfg *Config, log *logger.Logger) *TesseractRecognizer {
	if log == nil {
		log = logger.Get()
	}

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	return &TesseractRecognizer{
		logger:    log,
		languages: languages,
	}
}

// Recognize performs OCR on the image. A fresh engine is created per call so
// that workers never share one.
func (t *TesseractRecognizer) Recognize(ctx context.Context, img *imaging.Prepared) (*plate.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.logger.WithFields("image", img.Path, "image_size", len(img.Data)).Debug("Processing image with Tesseract")
	startTime := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// plates sit anywhere in the frame among unrelated text
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if err := client.SetImageFromBytes(img.Data); err != nil {
		return nil, fmt.Errorf("failed to set image data: %w", err)
	}

	hocrText, err := client.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("failed to get HOCR text: %w", err)
	}

	det, err := parseHOCR(hocrText, img.Width, img.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HOCR: %w", err)
	}

	t.logger.WithFields(
		"image", img.Path,
		"lines", len(det.Lines),
		"words", len(det.Words),
		"duration", time.Since(startTime),
	).Debug("Tesseract OCR completed")

	return det, nil
}

// HealthCheck verifies that the configured languages are installed
func (t *TesseractRecognizer) HealthCheck(ctx context.Context) error {
	installed, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("tesseract health check failed: %w", err)
	}

	have := make(map[string]bool, len(installed))
	for _, l := range installed {
		have[l] = true
	}
	for _, l := range t.languages {
		if !have[l] {
			return fmt.Errorf("tesseract language %q is not installed", l)
		}
	}
	return nil
}

// Name returns the provider name
func (t *TesseractRecognizer) Name() string {
	return string(ProviderTesseract)
}
