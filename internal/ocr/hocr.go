package ocr

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/platinummonkey/platescan/internal/plate"
)

// HOCR classes that hold a single line of text.
var hocrLineClasses = map[string]bool{
	"ocr_line":      true,
	"ocr_header":    true,
	"ocr_caption":   true,
	"ocr_textfloat": true,
}

// hocrTitle holds the properties tesseract packs into an element's title
// attribute, e.g. `bbox 100 200 180 250; x_wconf 96`.
type hocrTitle struct {
	box    [4]int
	hasBox bool
	wconf  float64
}

func parseTitle(title string) hocrTitle {
	var t hocrTitle
	for _, prop := range strings.Split(title, ";") {
		fields := strings.Fields(prop)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "bbox":
			if len(fields) != 5 {
				continue
			}
			var box [4]int
			ok := true
			for i := range box {
				v, err := strconv.Atoi(fields[i+1])
				if err != nil {
					ok = false
					break
				}
				box[i] = v
			}
			if ok {
				t.box, t.hasBox = box, true
			}
		case "x_wconf":
			if len(fields) == 2 {
				if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
					t.wconf = v
				}
			}
		}
	}
	return t
}

// normalized converts the x0 y0 x1 y1 pixel corners into a box relative to
// an image of the given size. A zero-sized image yields an empty box.
func (t hocrTitle) normalized(width, height int) plate.BoundingBox {
	if !t.hasBox || width <= 0 || height <= 0 {
		return plate.BoundingBox{}
	}
	w, h := float64(width), float64(height)
	return clampBox(plate.BoundingBox{
		Left:   float64(t.box[0]) / w,
		Top:    float64(t.box[1]) / h,
		Width:  float64(t.box[2]-t.box[0]) / w,
		Height: float64(t.box[3]-t.box[1]) / h,
	})
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// hocrLine accumulates one line while the decoder walks its words.
type hocrLine struct {
	title hocrTitle
	words []plate.TextBlock
	depth int
}

// parseHOCR converts HOCR output to a detection. Each line span becomes a
// line block whose text is its words joined by single spaces and whose
// confidence is the mean word confidence. The first ocr_page box supplies the
// image size, falling back to width and height.
func parseHOCR(hocrText string, width, height int) (*plate.Detection, error) {
	dec := xml.NewDecoder(strings.NewReader(hocrText))
	dec.Entity = xml.HTMLEntity

	det := &plate.Detection{
		Lines:  []plate.TextBlock{},
		Width:  width,
		Height: height,
	}

	var (
		depth     int
		sizeSet   bool
		line      *hocrLine
		word      *hocrTitle
		wordDepth int
		wordText  strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read HOCR: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			class := attr(el, "class")
			switch {
			case class == "ocr_page" && !sizeSet:
				sizeSet = true
				if t := parseTitle(attr(el, "title")); t.hasBox && t.box[2] > 0 && t.box[3] > 0 {
					det.Width, det.Height = t.box[2], t.box[3]
				}
			case hocrLineClasses[class] && line == nil:
				line = &hocrLine{title: parseTitle(attr(el, "title")), depth: depth}
			case class == "ocrx_word" && line != nil && word == nil:
				t := parseTitle(attr(el, "title"))
				word, wordDepth = &t, depth
				wordText.Reset()
			}

		case xml.CharData:
			if word != nil {
				wordText.Write(el)
			}

		case xml.EndElement:
			if word != nil && depth == wordDepth {
				text := strings.TrimSpace(wordText.String())
				if word.hasBox && text != "" {
					line.words = append(line.words, plate.TextBlock{
						Text:        text,
						Confidence:  word.wconf,
						BoundingBox: word.normalized(det.Width, det.Height),
					})
				}
				word = nil
			} else if line != nil && depth == line.depth {
				if block, ok := line.block(det.Width, det.Height); ok {
					det.Lines = append(det.Lines, block)
					det.Words = append(det.Words, line.words...)
				}
				line = nil
			}
			depth--
		}
	}

	return det, nil
}

func (l *hocrLine) block(width, height int) (plate.TextBlock, bool) {
	if len(l.words) == 0 {
		return plate.TextBlock{}, false
	}

	texts := make([]string, len(l.words))
	total := 0.0
	for i, w := range l.words {
		texts[i] = w.Text
		total += w.Confidence
	}

	return plate.TextBlock{
		Text:        strings.Join(texts, " "),
		Confidence:  total / float64(len(l.words)),
		BoundingBox: l.title.normalized(width, height),
	}, true
}
