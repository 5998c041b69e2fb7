package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/platescan/internal/plate"
)

// ImageResult contains the outcome of processing a single image
type ImageResult struct {
	Image                 string               `json:"image" yaml:"image"`
	Success               bool                 `json:"success" yaml:"success"`
	Plates                []plate.Plate        `json:"plates" yaml:"plates"`
	AllDetectedText       []plate.DetectedText `json:"all_detected_text" yaml:"all_detected_text"`
	LowConfidenceIncluded bool                 `json:"low_confidence_plates_included,omitempty" yaml:"low_confidence_plates_included,omitempty"`
	Error                 string               `json:"error,omitempty" yaml:"error,omitempty"`
	Duration              time.Duration        `json:"-" yaml:"-"`
}

// PlateCount returns the number of plates found
func (r *ImageResult) PlateCount() int {
	return len(r.Plates)
}

// BestPlate returns the highest-ranked plate, if any
func (r *ImageResult) BestPlate() (plate.Plate, bool) {
	if len(r.Plates) == 0 {
		return plate.Plate{}, false
	}
	return r.Plates[0], true
}

func failed(path string, err error, start time.Time) *ImageResult {
	return &ImageResult{
		Image:           path,
		Plates:          []plate.Plate{},
		AllDetectedText: []plate.DetectedText{},
		Error:           err.Error(),
		Duration:        time.Since(start),
	}
}

// Result contains the results of a batch run
type Result struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"-" yaml:"-"`
	Images    []ImageResult `json:"results" yaml:"results"`
}

// Summary aggregates a batch run
type Summary struct {
	TotalImages           int     `json:"total_images" yaml:"total_images"`
	Successful            int     `json:"successful" yaml:"successful"`
	Failed                int     `json:"failed" yaml:"failed"`
	TotalPlates           int     `json:"total_plates" yaml:"total_plates"`
	AveragePlatesPerImage float64 `json:"average_plates_per_image" yaml:"average_plates_per_image"`
}

// Summary computes totals. The average is taken over successful images only.
func (r *Result) Summary() Summary {
	s := Summary{TotalImages: len(r.Images)}
	for i := range r.Images {
		if !r.Images[i].Success {
			s.Failed++
			continue
		}
		s.Successful++
		s.TotalPlates += len(r.Images[i].Plates)
	}
	if s.Successful > 0 {
		s.AveragePlatesPerImage = plate.Round2(float64(s.TotalPlates) / float64(s.Successful))
	}
	return s
}

// HasFailures returns true if any image failed
func (r *Result) HasFailures() bool {
	for i := range r.Images {
		if !r.Images[i].Success {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the run
func (r *Result) String() string {
	s := r.Summary()

	var sb strings.Builder
	sb.WriteString("Batch Summary:\n")
	fmt.Fprintf(&sb, "  Total Images: %d\n", s.TotalImages)
	fmt.Fprintf(&sb, "  Successful: %d\n", s.Successful)
	fmt.Fprintf(&sb, "  Failed: %d\n", s.Failed)
	fmt.Fprintf(&sb, "  Total Plates: %d\n", s.TotalPlates)
	fmt.Fprintf(&sb, "  Average Plates/Image: %.2f\n", s.AveragePlatesPerImage)
	fmt.Fprintf(&sb, "  Duration: %v\n", r.Duration.Round(time.Millisecond))

	if r.HasFailures() {
		sb.WriteString("\nFailures:\n")
		for _, img := range r.Images {
			if !img.Success {
				fmt.Fprintf(&sb, "  - %s: %s\n", img.Image, img.Error)
			}
		}
	}

	return sb.String()
}
