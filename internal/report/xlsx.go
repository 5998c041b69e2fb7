package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/platinummonkey/platescan/internal/batch"
)

// Sheet names in the XLSX workbook
const (
	PlatesSheet       = "Plates"
	DetectedTextSheet = "Detected Text"
)

func writeXLSX(w io.Writer, images []batch.ImageResult) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", PlatesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(DetectedTextSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	plates := sheetWriter{f: f, sheet: PlatesSheet}
	plates.row("Image", "Plate", "Confidence", "Low Confidence", "Source", "Success", "Error")
	for _, img := range images {
		if len(img.Plates) == 0 {
			plates.row(img.Image, "", "", "", "", img.Success, img.Error)
			continue
		}
		for _, p := range img.Plates {
			plates.row(img.Image, p.Text, p.Confidence, p.LowConfidence, p.Source, img.Success, img.Error)
		}
	}

	text := sheetWriter{f: f, sheet: DetectedTextSheet}
	text.row("Image", "Text", "Confidence")
	for _, img := range images {
		for _, t := range img.AllDetectedText {
			text.row(img.Image, t.Text, t.Confidence)
		}
	}

	_ = f.SetColWidth(PlatesSheet, "A", "A", 48)
	_ = f.SetColWidth(PlatesSheet, "B", "B", 18)
	_ = f.SetColWidth(PlatesSheet, "G", "G", 48)
	_ = f.SetColWidth(DetectedTextSheet, "A", "A", 48)
	_ = f.SetColWidth(DetectedTextSheet, "B", "B", 36)

	if err := plates.err; err != nil {
		return err
	}
	if err := text.err; err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// sheetWriter appends rows to a sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (s *sheetWriter) row(values ...interface{}) {
	if s.err != nil {
		return
	}
	s.next++
	cell, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(s.sheet, cell, &values); err != nil {
		s.err = fmt.Errorf("failed to write %s row %d: %w", s.sheet, s.next, err)
	}
}
