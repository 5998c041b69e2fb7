package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/platinummonkey/platescan/internal/batch"
)

const (
	pdfFont       = "goregular"
	pdfMargin     = 40.0
	pdfLineHeight = 16.0
)

// pdf column layout on an A4 page: image, plate, confidence, status
var pdfColumns = []struct {
	title string
	width float64
}{
	{"Image", 190},
	{"Plate", 130},
	{"Confidence", 80},
	{"Status", 115},
}

type pdfReport struct {
	pdf  *gopdf.GoPdf
	page *gopdf.Rect
}

func writePDF(w io.Writer, title string, images []batch.ImageResult) error {
	r := &pdfReport{pdf: &gopdf.GoPdf{}, page: gopdf.PageSizeA4}
	r.pdf.Start(gopdf.Config{PageSize: *r.page})

	if err := r.pdf.AddTTFFontData(pdfFont, goregular.TTF); err != nil {
		return fmt.Errorf("failed to load PDF font: %w", err)
	}

	r.pdf.AddPage()
	if err := r.text(16, title); err != nil {
		return err
	}
	summary := (&batch.Result{Images: images}).Summary()
	lines := []string{
		fmt.Sprintf("Generated: %s", time.Now().Format(time.RFC3339)),
		fmt.Sprintf("Images: %d  Successful: %d  Failed: %d  Plates: %d",
			summary.TotalImages, summary.Successful, summary.Failed, summary.TotalPlates),
	}
	for _, l := range lines {
		if err := r.text(10, l); err != nil {
			return err
		}
	}
	r.pdf.Br(pdfLineHeight / 2)

	if err := r.header(); err != nil {
		return err
	}
	for _, img := range images {
		status := "ok"
		if !img.Success {
			status = "error: " + img.Error
		}
		if len(img.Plates) == 0 {
			plateText := "-"
			if img.Success {
				plateText = "none"
			}
			if err := r.row(filepath.Base(img.Image), plateText, "-", status); err != nil {
				return err
			}
			continue
		}
		for _, p := range img.Plates {
			if err := r.row(filepath.Base(img.Image), p.Text, formatConfidence(p), status); err != nil {
				return err
			}
		}
	}

	if err := r.pdf.Write(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func (r *pdfReport) text(size int, s string) error {
	if err := r.pdf.SetFont(pdfFont, "", size); err != nil {
		return fmt.Errorf("failed to set PDF font: %w", err)
	}
	r.pdf.SetX(pdfMargin)
	if r.pdf.GetY() < pdfMargin {
		r.pdf.SetY(pdfMargin)
	}
	if err := r.pdf.Text(s); err != nil {
		return fmt.Errorf("failed to write PDF text: %w", err)
	}
	r.pdf.Br(float64(size) + 6)
	return nil
}

func (r *pdfReport) header() error {
	if err := r.cells(r.titles()...); err != nil {
		return err
	}
	y := r.pdf.GetY() - 2
	r.pdf.SetLineWidth(0.5)
	r.pdf.Line(pdfMargin, y, r.page.W-pdfMargin, y)
	return nil
}

func (r *pdfReport) titles() []string {
	out := make([]string, len(pdfColumns))
	for i, c := range pdfColumns {
		out[i] = c.title
	}
	return out
}

func (r *pdfReport) row(values ...string) error {
	if r.pdf.GetY()+pdfLineHeight > r.page.H-pdfMargin {
		r.pdf.AddPage()
		r.pdf.SetY(pdfMargin)
		if err := r.header(); err != nil {
			return err
		}
	}
	return r.cells(values...)
}

func (r *pdfReport) cells(values ...string) error {
	if err := r.pdf.SetFont(pdfFont, "", 9); err != nil {
		return fmt.Errorf("failed to set PDF font: %w", err)
	}
	x := pdfMargin
	y := r.pdf.GetY()
	for i, v := range values {
		r.pdf.SetXY(x, y)
		rect := &gopdf.Rect{W: pdfColumns[i].width - 4, H: pdfLineHeight}
		if err := r.pdf.CellWithOption(rect, truncate(v, pdfColumns[i].width), gopdf.CellOption{Align: gopdf.Left | gopdf.Middle}); err != nil {
			return fmt.Errorf("failed to write PDF cell: %w", err)
		}
		x += pdfColumns[i].width
	}
	r.pdf.SetXY(pdfMargin, y+pdfLineHeight)
	return nil
}

// truncate keeps roughly what fits in a column at 9pt.
func truncate(s string, width float64) string {
	limit := int(width / 5)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// ValidatePDF checks that path is a readable PDF
func ValidatePDF(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("PDF file does not exist: %s", path)
	}
	if _, err := api.ReadContextFile(path); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return nil
}

// PageCount returns the number of pages in a PDF report
func PageCount(path string) (int, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return ctx.PageCount, nil
}
