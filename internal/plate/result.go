package plate

import (
	"math"
	"strings"
)

// Detection is a normalized OCR response for one image.
type Detection struct {
	// Lines are line-level blocks in reading order; extraction runs on these
	Lines []TextBlock `json:"lines" yaml:"lines"`

	// Words are word-level blocks, when the recognizer provides them
	Words []TextBlock `json:"words,omitempty" yaml:"words,omitempty"`

	// Width and Height of the recognized image in pixels
	Width  int `json:"width,omitempty" yaml:"width,omitempty"`
	Height int `json:"height,omitempty" yaml:"height,omitempty"`
}

// Plate is an extracted plate as reported to callers.
type Plate struct {
	Text          string  `json:"text" yaml:"text"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
	Source        string  `json:"source,omitempty" yaml:"source,omitempty"`
	LowConfidence bool    `json:"is_low_confidence,omitempty" yaml:"is_low_confidence,omitempty"`
}

// DetectedText is one recognized line as reported to callers.
type DetectedText struct {
	Text       string  `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Result is the outcome of parsing one detection.
type Result struct {
	Plates                []Plate        `json:"plates" yaml:"plates"`
	AllDetectedText       []DetectedText `json:"all_detected_text" yaml:"all_detected_text"`
	LowConfidenceIncluded bool           `json:"low_confidence_plates_included" yaml:"low_confidence_plates_included"`
}

// ParseOptions configures Parse.
type ParseOptions struct {
	Options

	// IncludeLowConfidence adds plates found between LowConfidenceThreshold
	// and Threshold, tagged as low confidence
	IncludeLowConfidence bool

	LowConfidenceThreshold float64
}

// DefaultParseOptions returns the default thresholds with the
// low-confidence tier disabled.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Options:                DefaultOptions(),
		LowConfidenceThreshold: DefaultLowConfidenceThreshold,
	}
}

// Parse extracts plates from the detection's lines and reports every
// recognized line alongside them. Confidences are rounded to two decimals.
func Parse(det Detection, opts ParseOptions) (*Result, error) {
	primary, err := New(opts.Options)
	if err != nil {
		return nil, err
	}

	candidates := primary.Extract(det.Lines)
	plates := make([]Plate, 0, len(candidates))
	for _, c := range candidates {
		plates = append(plates, Plate{
			Text:       c.Text,
			Confidence: Round2(c.Confidence),
			Source:     c.Source.String(),
		})
	}

	if opts.IncludeLowConfidence {
		lowOpts := opts.Options
		lowOpts.Threshold = opts.LowConfidenceThreshold
		low, err := New(lowOpts)
		if err != nil {
			return nil, err
		}
		plates = append(plates, lowTier(low.Extract(det.Lines), plates, opts.Threshold, opts.LowConfidenceThreshold)...)
	}

	return &Result{
		Plates:                plates,
		AllDetectedText:       AllDetectedText(det.Lines),
		LowConfidenceIncluded: opts.IncludeLowConfidence,
	}, nil
}

// lowTier keeps candidates in [floor, threshold) whose exact text is not
// already reported. The comparison is on exact text, so a low-confidence
// plate differing from a main plate only by spacing is still reported.
func lowTier(candidates []Candidate, mainPlates []Plate, threshold, floor float64) []Plate {
	known := make(map[string]struct{}, len(mainPlates))
	for _, p := range mainPlates {
		known[p.Text] = struct{}{}
	}

	var out []Plate
	for _, c := range candidates {
		if c.Confidence >= threshold || c.Confidence < floor {
			continue
		}
		if _, ok := known[c.Text]; ok {
			continue
		}
		out = append(out, Plate{
			Text:          c.Text,
			Confidence:    Round2(c.Confidence),
			Source:        c.Source.String(),
			LowConfidence: true,
		})
	}
	return out
}

// AllDetectedText lists every line with non-blank text, in input order, with
// its confidence rounded to two decimals. Text is reported untrimmed.
func AllDetectedText(lines []TextBlock) []DetectedText {
	out := make([]DetectedText, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		out = append(out, DetectedText{Text: l.Text, Confidence: Round2(l.Confidence)})
	}
	return out
}

// Round2 rounds x to two decimal places. Exact halves go to the even
// neighbour (80.125 -> 80.12).
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
