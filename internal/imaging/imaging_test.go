package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writePNG writes a small synthetic plate: dark glyph bars on a light field.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 230, G: 230, B: 230, A: 255}
			if (x/6)%2 == 0 && y > h/4 && y < 3*h/4 {
				c = color.RGBA{R: 20, G: 20, B: 20, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "plate.png")
	writePNG(t, good, 40, 20)

	empty := filepath.Join(dir, "empty.jpg")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}

	big := filepath.Join(dir, "big.jpg")
	if err := os.WriteFile(big, make([]byte, MaxFileSize+1), 0644); err != nil {
		t.Fatal(err)
	}

	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	subdir := filepath.Join(dir, "frames.jpg")
	if err := os.Mkdir(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid", good, nil},
		{"missing", filepath.Join(dir, "missing.png"), ErrNotFound},
		{"directory", subdir, ErrNotAFile},
		{"unsupported", text, ErrUnsupportedFormat},
		{"too large", big, ErrFileTooLarge},
		{"empty", empty, ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	tests := map[string]bool{
		"a.jpg":  true,
		"a.JPEG": true,
		"a.png":  true,
		"a.bmp":  true,
		"a.gif":  true,
		"a.webp": true,
		"a.tiff": false,
		"a":      false,
		"a.pdf":  false,
	}
	for path, want := range tests {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.JPG", "b.webp", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.JPG"),
		filepath.Join(dir, "b.webp"),
		filepath.Join(dir, "c.png"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListImages() = %v, want %v", got, want)
	}
}

func TestListImages_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ListImages(file); err == nil {
		t.Error("expected error for a file path")
	}
	if _, err := ListImages(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a missing folder")
	}
}

func TestPrepare_PassThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.png")
	writePNG(t, path, 64, 32)
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	p, err := Prepare(path, Options{})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if !bytes.Equal(p.Data, original) {
		t.Error("expected original bytes without enhancement")
	}
	if p.MIMEType != "image/png" || p.Format() != "png" {
		t.Errorf("unexpected type %q / %q", p.MIMEType, p.Format())
	}
	if p.Width != 64 || p.Height != 32 {
		t.Errorf("unexpected size %dx%d", p.Width, p.Height)
	}
	if p.Enhanced {
		t.Error("expected Enhanced=false")
	}
}

func TestPrepare_Enhance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.png")
	writePNG(t, path, 64, 32)

	p, err := Prepare(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if p.MIMEType != "image/jpeg" {
		t.Errorf("expected jpeg output, got %s", p.MIMEType)
	}
	if !p.Enhanced {
		t.Error("expected Enhanced=true")
	}
	if _, err := jpeg.Decode(bytes.NewReader(p.Data)); err != nil {
		t.Errorf("output is not a valid jpeg: %v", err)
	}
	if p.Width != 64 || p.Height != 32 {
		t.Errorf("unexpected size %dx%d", p.Width, p.Height)
	}
	if p.Base64() == "" {
		t.Error("expected base64 payload")
	}
}

func TestPrepare_MaxDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.png")
	writePNG(t, path, 200, 100)

	p, err := Prepare(path, Options{MaxDimension: 50})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if p.Width != 50 || p.Height != 25 {
		t.Errorf("expected 50x25, got %dx%d", p.Width, p.Height)
	}
}

func TestPrepare_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Prepare(path, Options{}); err == nil {
		t.Error("expected decode error")
	}
	if _, err := Prepare(path, DefaultOptions()); err == nil {
		t.Error("expected decode error with enhancement")
	}
}
