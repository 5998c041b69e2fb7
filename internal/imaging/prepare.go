package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Enhancement defaults.
const (
	DefaultJPEGQuality  = 95
	DefaultMedianRadius = 1.0
	DefaultContrast     = 25.0
	DefaultSharpenSigma = 0.8
)

// Options controls Prepare.
type Options struct {
	// Enhance denoises, boosts contrast and sharpens before re-encoding as JPEG
	Enhance bool

	// MaxDimension shrinks the longer side to this many pixels when set
	MaxDimension int

	// JPEGQuality for the re-encoded image (1-100)
	JPEGQuality int
}

// DefaultOptions enables enhancement with the default quality.
func DefaultOptions() Options {
	return Options{Enhance: true, JPEGQuality: DefaultJPEGQuality}
}

// Prepared is an image ready for recognition.
type Prepared struct {
	Path     string
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	Enhanced bool
}

// Base64 returns the image bytes base64 encoded.
func (p *Prepared) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// Format returns the subtype of the MIME type ("jpeg", "png", ...).
func (p *Prepared) Format() string {
	if i := strings.LastIndexByte(p.MIMEType, '/'); i >= 0 {
		return p.MIMEType[i+1:]
	}
	return p.MIMEType
}

// Prepare validates path and loads it for recognition. Without enhancement
// or resizing the original bytes are passed through untouched.
func Prepare(path string, opts Options) (*Prepared, error) {
	if _, err := Validate(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	if !opts.Enhance && opts.MaxDimension <= 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image header %s: %w", path, err)
		}
		return &Prepared{
			Path:     path,
			Data:     data,
			MIMEType: MIMEType(path),
			Width:    cfg.Width,
			Height:   cfg.Height,
		}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	if opts.MaxDimension > 0 {
		b := img.Bounds()
		if b.Dx() > opts.MaxDimension || b.Dy() > opts.MaxDimension {
			img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
		}
	}

	if opts.Enhance {
		img = Enhance(img)
	}

	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image %s: %w", path, err)
	}

	b := img.Bounds()
	return &Prepared{
		Path:     path,
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
		Width:    b.Dx(),
		Height:   b.Dy(),
		Enhanced: opts.Enhance,
	}, nil
}

// Enhance runs the plate readability pipeline: an edge-preserving median
// denoise, a contrast boost to separate glyphs from the plate background,
// then a light sharpen.
func Enhance(img image.Image) image.Image {
	denoised := effect.Median(img, DefaultMedianRadius)
	contrasted := imaging.AdjustContrast(denoised, DefaultContrast)
	return imaging.Sharpen(contrasted, DefaultSharpenSigma)
}
