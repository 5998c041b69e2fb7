package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/platinummonkey/platescan/internal/batch"
)

var (
	imageCSVHeader = []string{"image", "type", "text", "confidence", "low_confidence"}
	batchCSVHeader = []string{"image", "plate", "confidence", "low_confidence", "success", "error"}
)

// writeImageCSV writes one row per plate followed by one row per detected line.
func writeImageCSV(w io.Writer, r *batch.ImageResult) error {
	cw := csv.NewWriter(w)
	rows := [][]string{imageCSVHeader}
	for _, p := range r.Plates {
		rows = append(rows, []string{r.Image, "plate", p.Text, formatFloat(p.Confidence), strconv.FormatBool(p.LowConfidence)})
	}
	for _, t := range r.AllDetectedText {
		rows = append(rows, []string{r.Image, "detected_text", t.Text, formatFloat(t.Confidence), ""})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// writeBatchCSV writes one row per plate; images without plates get a
// single row with an empty plate so failures stay visible.
func writeBatchCSV(w io.Writer, r *batch.Result) error {
	cw := csv.NewWriter(w)
	rows := [][]string{batchCSVHeader}
	for _, img := range r.Images {
		success := strconv.FormatBool(img.Success)
		if len(img.Plates) == 0 {
			rows = append(rows, []string{img.Image, "", "", "", success, img.Error})
			continue
		}
		for _, p := range img.Plates {
			rows = append(rows, []string{img.Image, p.Text, formatFloat(p.Confidence), strconv.FormatBool(p.LowConfidence), success, img.Error})
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
