package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/platinummonkey/platescan/internal/batch"
	"github.com/platinummonkey/platescan/internal/plate"
)

func writeImageTable(w io.Writer, r *batch.ImageResult) error {
	fmt.Fprintf(w, "\nImage: %s\n", r.Image)
	fmt.Fprintln(w, strings.Repeat("-", 50))

	if !r.Success {
		_, err := fmt.Fprintf(w, "Error: %s\n", r.Error)
		return err
	}
	return writePlateTable(w, r.Plates)
}

func writePlateTable(w io.Writer, plates []plate.Plate) error {
	if len(plates) == 0 {
		_, err := fmt.Fprintln(w, "No plates detected")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Plate Number", "Confidence"})
	for _, p := range plates {
		table.Append([]string{p.Text, formatConfidence(p)})
	}
	table.Render()
	return nil
}

func writeBatchTable(w io.Writer, r *batch.Result) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Image", "Plates", "Best Plate", "Confidence", "Status"})
	table.SetAutoWrapText(false)

	for i := range r.Images {
		img := &r.Images[i]
		status := "ok"
		if !img.Success {
			status = "error: " + img.Error
		}
		best, confidence := "-", "-"
		if p, ok := img.BestPlate(); ok {
			best, confidence = p.Text, formatConfidence(p)
		}
		table.Append([]string{img.Image, fmt.Sprint(img.PlateCount()), best, confidence, status})
	}
	table.Render()

	s := r.Summary()
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Total Images: %d\n", s.TotalImages)
	fmt.Fprintf(w, "  Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "  Total Plates: %d\n", s.TotalPlates)
	_, err := fmt.Fprintf(w, "  Avg Plates/Image: %.1f\n", s.AveragePlatesPerImage)
	return err
}

func formatConfidence(p plate.Plate) string {
	s := fmt.Sprintf("%.1f%%", p.Confidence)
	if p.LowConfidence {
		s += " (low)"
	}
	return s
}
