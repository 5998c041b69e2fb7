// Package plate extracts vehicle registration plate candidates from OCR text
// blocks.
//
// The package is pure: it performs no I/O and holds no mutable state, so an
// Extractor may be shared between goroutines.
package plate

import "strings"

// BoundingBox is a block position normalized to the image size, each
// component in [0,1].
type BoundingBox struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Right returns the right edge of the box.
func (b BoundingBox) Right() float64 {
	return b.Left + b.Width
}

// TextBlock is one recognized line (or word) of text.
type TextBlock struct {
	Text string `json:"text" yaml:"text"`

	// Confidence is on a 0-100 scale
	Confidence float64 `json:"confidence" yaml:"confidence"`

	BoundingBox BoundingBox `json:"bounding_box" yaml:"bounding_box"`
}

// SourceKind records which extraction pass produced a candidate.
type SourceKind int

const (
	// SourceSingle is a candidate taken from one block
	SourceSingle SourceKind = iota
	// SourceMerged is a candidate built from consecutive blocks
	SourceMerged
	// SourceOverlay is a candidate captured after a "Plate:" marker
	SourceOverlay
	// SourceAdjacent is a candidate built from horizontally touching blocks
	SourceAdjacent
)

// String returns the lowercase name of the pass.
func (s SourceKind) String() string {
	switch s {
	case SourceSingle:
		return "single"
	case SourceMerged:
		return "merged"
	case SourceOverlay:
		return "overlay"
	case SourceAdjacent:
		return "adjacent"
	default:
		return "unknown"
	}
}

// Candidate is an accepted plate string.
type Candidate struct {
	Text       string
	Confidence float64
	Source     SourceKind
}

// NormalizedKey returns the dedup identity of a plate text: spaces removed,
// upper-cased. Hyphens are kept.
func NormalizedKey(text string) string {
	return strings.ToUpper(strings.ReplaceAll(text, " ", ""))
}
