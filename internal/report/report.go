// Package report renders extraction results as tables, JSON, YAML, CSV,
// XLSX and PDF.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/plate"
)

// Format is an output format name
type Format string

// Supported formats
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatPDF   Format = "pdf"
	FormatYAML  Format = "yaml"
)

// Formats lists every supported format
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatXLSX, FormatPDF, FormatYAML}

// ParseFormat returns the format named s (case-insensitive)
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Binary reports whether the format is unsuitable for a terminal
func (f Format) Binary() bool {
	return f == FormatXLSX || f == FormatPDF
}

// Extension returns the file extension used for the format
func (f Format) Extension() string {
	if f == FormatTable {
		return ".txt"
	}
	return "." + string(f)
}

// ImageReport is the document written for a single image
type ImageReport struct {
	Image                 string               `json:"image" yaml:"image"`
	Plates                []plate.Plate        `json:"plates" yaml:"plates"`
	PlateCount            int                  `json:"plate_count" yaml:"plate_count"`
	AllDetectedText       []plate.DetectedText `json:"all_detected_text" yaml:"all_detected_text"`
	TotalTextBlocks       int                  `json:"total_text_blocks" yaml:"total_text_blocks"`
	LowConfidenceIncluded bool                 `json:"low_confidence_plates_included,omitempty" yaml:"low_confidence_plates_included,omitempty"`
}

// NewImageReport builds the single-image document from a result
func NewImageReport(r *batch.ImageResult) ImageReport {
	plates := r.Plates
	if plates == nil {
		plates = []plate.Plate{}
	}
	text := r.AllDetectedText
	if text == nil {
		text = []plate.DetectedText{}
	}
	return ImageReport{
		Image:                 r.Image,
		Plates:                plates,
		PlateCount:            len(plates),
		AllDetectedText:       text,
		TotalTextBlocks:       len(text),
		LowConfidenceIncluded: r.LowConfidenceIncluded,
	}
}

// BatchReport is the document written for a batch run
type BatchReport struct {
	RunID       string              `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	TotalImages int                 `json:"total_images" yaml:"total_images"`
	Summary     batch.Summary       `json:"summary" yaml:"summary"`
	Results     []batch.ImageResult `json:"results" yaml:"results"`
}

// NewBatchReport builds the batch document from a run
func NewBatchReport(r *batch.Result) BatchReport {
	results := r.Images
	if results == nil {
		results = []batch.ImageResult{}
	}
	return BatchReport{
		RunID:       r.RunID,
		TotalImages: len(results),
		Summary:     r.Summary(),
		Results:     results,
	}
}

// WriteImage renders a single-image result to w
func WriteImage(w io.Writer, format Format, r *batch.ImageResult) error {
	switch format {
	case FormatTable:
		return writeImageTable(w, r)
	case FormatJSON:
		return writeJSON(w, NewImageReport(r))
	case FormatYAML:
		return writeYAML(w, NewImageReport(r))
	case FormatCSV:
		return writeImageCSV(w, r)
	case FormatXLSX:
		return writeXLSX(w, []batch.ImageResult{*r})
	case FormatPDF:
		return writePDF(w, "Plate Report", []batch.ImageResult{*r})
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteBatch renders a batch run to w
func WriteBatch(w io.Writer, format Format, r *batch.Result) error {
	switch format {
	case FormatTable:
		return writeBatchTable(w, r)
	case FormatJSON:
		return writeJSON(w, NewBatchReport(r))
	case FormatYAML:
		return writeYAML(w, NewBatchReport(r))
	case FormatCSV:
		return writeBatchCSV(w, r)
	case FormatXLSX:
		return writeXLSX(w, r.Images)
	case FormatPDF:
		return writePDF(w, "Batch Plate Report", r.Images)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// SaveImage writes a single-image report to path
func SaveImage(path string, format Format, r *batch.ImageResult) error {
	return save(path, format, func(w io.Writer) error { return WriteImage(w, format, r) })
}

// SaveBatch writes a batch report to path
func SaveBatch(path string, format Format, r *batch.Result) error {
	return save(path, format, func(w io.Writer) error { return WriteBatch(w, format, r) })
}

func save(path string, format Format, render func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}

	if format == FormatPDF {
		return ValidatePDF(path)
	}
	return nil
}
