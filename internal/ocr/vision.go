package ocr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/platinummonkey/platescan/internal/plate"
)

// DefaultPrompt asks a vision model for line-level text with boxes.
const DefaultPrompt = `Read all text visible in this photo of a vehicle, including the number plate,
any stickers, dealer frames and overlays burned into the image.
Return ONLY valid JSON with no markdown formatting, no code blocks, no explanation.

Format:
{
  "lines": [
    {
      "text": "TS 08 FW 3131",
      "bbox": [x, y, width, height],
      "confidence": 0.95,
      "words": [
        {"text": "TS", "bbox": [x, y, width, height], "confidence": 0.96}
      ]
    }
  ]
}

Rules:
- One entry per line of text, in reading order (top to bottom, left to right)
- Copy characters exactly as printed; do not correct or complete plate numbers
- bbox coordinates are pixels from the top-left (0,0)
- confidence is 0.0-1.0, use 0.8 if uncertain
- Return {"lines": []} if no text is found`

// defaultVisionConfidence is used when a model omits a confidence.
const defaultVisionConfidence = 0.8

type visionWord struct {
	Text       string    `json:"text"`
	BBox       []float64 `json:"bbox"`
	Confidence *float64  `json:"confidence,omitempty"`
}

type visionLine struct {
	visionWord
	Words []visionWord `json:"words,omitempty"`
}

type visionResponse struct {
	Lines []visionLine `json:"lines"`
	Words []visionWord `json:"words"`
}

// parseVisionResponse converts a model's JSON answer into a detection for an
// image of the given pixel size. It accepts a {"lines": [...]} object, a bare
// array of lines, or a {"words": [...]} object; markdown code fences are
// ignored. When only words are returned they are used as lines.
func parseVisionResponse(content string, width, height int) (*plate.Detection, error) {
	body := stripCodeFence(content)

	var resp visionResponse
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &resp.Lines); err != nil {
			return nil, fmt.Errorf("failed to parse OCR response: %w", err)
		}
	} else if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}

	det := &plate.Detection{
		Lines:  []plate.TextBlock{},
		Width:  width,
		Height: height,
	}

	for _, l := range resp.Lines {
		det.Lines = append(det.Lines, l.block(width, height))
		for _, w := range l.Words {
			det.Words = append(det.Words, w.block(width, height))
		}
	}
	for _, w := range resp.Words {
		b := w.block(width, height)
		det.Words = append(det.Words, b)
		if len(resp.Lines) == 0 {
			det.Lines = append(det.Lines, b)
		}
	}

	return det, nil
}

func (w visionWord) block(width, height int) plate.TextBlock {
	conf := defaultVisionConfidence
	if w.Confidence != nil {
		conf = *w.Confidence
	}
	return plate.TextBlock{
		Text:        w.Text,
		Confidence:  NormalizeConfidence(conf),
		BoundingBox: normalizeBBox(w.BBox, width, height),
	}
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NormalizeConfidence maps a provider confidence onto 0-100. Values above 1
// are assumed to be percentages already; values in [0,1] are scaled.
func NormalizeConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c <= 1 {
		c *= 100
	}
	return math.Min(c, 100)
}

// normalizeBBox converts an [x, y, w, h] pixel box to fractions of the image.
// A box whose values are all within [0,1] is taken as already normalized.
func normalizeBBox(bbox []float64, width, height int) plate.BoundingBox {
	if len(bbox) < 4 {
		return plate.BoundingBox{}
	}

	normalized := true
	for _, v := range bbox[:4] {
		if v > 1 {
			normalized = false
			break
		}
	}
	if normalized {
		return clampBox(plate.BoundingBox{Left: bbox[0], Top: bbox[1], Width: bbox[2], Height: bbox[3]})
	}

	if width <= 0 || height <= 0 {
		return plate.BoundingBox{}
	}
	w, h := float64(width), float64(height)
	return clampBox(plate.BoundingBox{
		Left:   bbox[0] / w,
		Top:    bbox[1] / h,
		Width:  bbox[2] / w,
		Height: bbox[3] / h,
	})
}

func clampBox(b plate.BoundingBox) plate.BoundingBox {
	return plate.BoundingBox{
		Left:   clamp01(b.Left),
		Top:    clamp01(b.Top),
		Width:  clamp01(b.Width),
		Height: clamp01(b.Height),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}
