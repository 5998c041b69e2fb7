package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

// fileLogger writes JSON entries to a temp file and returns a reader for them
func fileLogger(t *testing.T, level string) (*Logger, func() []map[string]interface{}) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "platescan.log")
	l, err := New(&Config{Level: level, Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	read := func() []map[string]interface{} {
		t.Helper()
		_ = l.Sync()
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()

		var entries []map[string]interface{}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			var e map[string]interface{}
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				t.Fatalf("log line is not JSON: %v: %s", err, sc.Text())
			}
			entries = append(entries, e)
		}
		return entries
	}
	return l, read
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		wantLevel string
		wantErr   bool
	}{
		{"nil config", nil, "info", false},
		{"console debug", &Config{Level: "debug", Format: "console"}, "debug", false},
		{"json warn", &Config{Level: "WARNING", Format: "json"}, "warn", false},
		{"empty format", &Config{Level: "error"}, "error", false},
		{"caller and stacktrace", &Config{Level: "info", EnableCaller: true, EnableStacktrace: true}, "info", false},
		{"invalid level", &Config{Level: "verbose"}, "", true},
		{"invalid format", &Config{Level: "info", Format: "xml"}, "", true},
		{"invalid file", &Config{OutputPath: filepath.Join(t.TempDir(), "missing", "dir", "x.log")}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if l.Level() != tt.wantLevel {
				t.Errorf("Level() = %s, want %s", l.Level(), tt.wantLevel)
			}
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	l, read := fileLogger(t, "info")

	l.WithImage("frames/gate-01.jpg").
		WithRunID("run-42").
		WithError(errors.New("tesseract crashed")).
		WithFields("plates", 2).
		Info("Image processed")
	l.Named("daemon").Info("Scan started")

	entries := read()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	first := entries[0]
	want := map[string]interface{}{
		"msg":    "Image processed",
		"level":  "info",
		"image":  "frames/gate-01.jpg",
		"run_id": "run-42",
		"error":  "tesseract crashed",
		"plates": float64(2),
	}
	for k, v := range want {
		if first[k] != v {
			t.Errorf("%s = %v, want %v", k, first[k], v)
		}
	}
	if entries[1]["logger"] != "daemon" {
		t.Errorf("logger = %v, want daemon", entries[1]["logger"])
	}
}

func TestSetLevel(t *testing.T) {
	l, read := fileLogger(t, "info")
	child := l.WithFields("component", "batch")

	child.Debug("hidden")
	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	child.Debug("shown")

	if err := l.SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}

	entries := read()
	if len(entries) != 1 || entries[0]["msg"] != "shown" {
		t.Errorf("unexpected entries: %v", entries)
	}
	if child.Level() != "debug" {
		t.Errorf("child Level() = %s, want debug", child.Level())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"fatal", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitAndGet(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get() returned nil")
	}

	if err := Init(&Config{Level: "error", Format: "json"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Get().Level() != "error" {
		t.Errorf("global Level() = %s, want error", Get().Level())
	}

	if err := Init(&Config{Level: "nope"}); err == nil {
		t.Error("expected Init to reject an invalid level")
	}
	if Get().Level() != "error" {
		t.Error("failed Init replaced the global logger")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.WithImage("a.jpg").Error("discarded")
	if err := l.SetLevel("debug"); err != nil {
		t.Errorf("SetLevel() error = %v", err)
	}
}
