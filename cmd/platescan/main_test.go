package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/platinummonkey/platescan/internal/evaluate"
	"github.com/platinummonkey/platescan/internal/plate"
	"github.com/platinummonkey/platescan/internal/report"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"failure", errors.New("boom"), exitFailure},
		{"interrupted", context.Canceled, exitInterrupted},
		{"wrapped interrupt", fmt.Errorf("scan: %w", context.Canceled), exitInterrupted},
		{"deadline", context.DeadlineExceeded, exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		asJSON     bool
		asCSV      bool
		output     string
		want       report.Format
		wantErr    bool
	}{
		{name: "configured", configured: "yaml", want: report.FormatYAML},
		{name: "json shorthand", configured: "table", asJSON: true, want: report.FormatJSON},
		{name: "csv shorthand", configured: "table", asCSV: true, want: report.FormatCSV},
		{name: "both shorthands", configured: "table", asJSON: true, asCSV: true, wantErr: true},
		{name: "unknown", configured: "html", wantErr: true},
		{name: "xlsx to stdout", configured: "xlsx", wantErr: true},
		{name: "pdf to file", configured: "PDF", output: "out.pdf", want: report.FormatPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectFormat(tt.configured, tt.asJSON, tt.asCSV, tt.output)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got format %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("selectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveExpectations(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "b.jpg")
	in := []evaluate.Expectation{
		{Image: "a.jpg", Expected: "TS08FW3131"},
		{Image: abs, Expected: "KA01AB1234"},
	}

	got := resolveExpectations(in, "/data/frames")
	want := []evaluate.Expectation{
		{Image: filepath.Join("/data/frames", "a.jpg"), Expected: "TS08FW3131"},
		{Image: abs, Expected: "KA01AB1234"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("resolveExpectations() = %+v, want %+v", got, want)
	}
	if in[0].Image != "a.jpg" {
		t.Error("input slice was modified")
	}
}

func TestEmit(t *testing.T) {
	render := func(w io.Writer) error {
		_, err := io.WriteString(w, "rendered")
		return err
	}

	t.Run("stdout", func(t *testing.T) {
		var out bytes.Buffer
		save := func(string) error {
			t.Error("save called without an output path")
			return nil
		}
		if err := emit(&out, "", report.FormatJSON, render, save); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
		if out.String() != "rendered" {
			t.Errorf("stdout = %q", out.String())
		}
	})

	t.Run("file", func(t *testing.T) {
		var out bytes.Buffer
		var saved string
		save := func(path string) error {
			saved = path
			return nil
		}
		if err := emit(&out, "plates.xlsx", report.FormatXLSX, render, save); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
		if saved != "plates.xlsx" {
			t.Errorf("saved to %q", saved)
		}
		if !strings.Contains(out.String(), "Report written to plates.xlsx") {
			t.Errorf("stdout = %q", out.String())
		}
	})

	t.Run("save error", func(t *testing.T) {
		save := func(string) error { return errors.New("disk full") }
		err := emit(io.Discard, "plates.pdf", report.FormatPDF, render, save)
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("expected wrapped save error, got %v", err)
		}
	})
}

func writeDetection(t *testing.T, dir string, det plate.Detection) string {
	t.Helper()
	data, err := json.Marshal(det)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "frame.detection.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDetection(t *testing.T) {
	dir := t.TempDir()
	want := plate.Detection{
		Lines:  []plate.TextBlock{{Text: "TS 08 FW 3131", Confidence: 95}},
		Words:  []plate.TextBlock{{Text: "TS", Confidence: 96}},
		Width:  640,
		Height: 480,
	}
	path := writeDetection(t, dir, want)

	got, err := loadDetection(path)
	if err != nil {
		t.Fatalf("loadDetection failed: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("loadDetection() = %+v, want %+v", *got, want)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadDetection(broken); err == nil {
		t.Error("expected error for malformed detection")
	}
	if _, err := loadDetection(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing detection")
	}
}

func TestParseCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeDetection(t, home, plate.Detection{Lines: []plate.TextBlock{
		{Text: "TS 08 FW 3131", Confidence: 95},
		{Text: "TATA", Confidence: 88},
	}})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"parse", path, "--json", "--log-level", "error"})
	defer rootCmd.SetArgs(nil)

	if err := Execute(context.Background()); err != nil {
		t.Fatalf("parse command failed: %v", err)
	}

	var got report.ImageReport
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.PlateCount != 1 || got.Plates[0].Text != "TS 08 FW 3131" {
		t.Errorf("unexpected plates: %+v", got.Plates)
	}
	if got.TotalTextBlocks != 2 {
		t.Errorf("TotalTextBlocks = %d, want 2", got.TotalTextBlocks)
	}
}
