// Package imaging validates, loads and enhances camera frames before they are
// handed to a recognizer.
package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxFileSize is the largest image accepted, in bytes.
const MaxFileSize = 5 * 1024 * 1024

var (
	// ErrNotFound is returned when the image path does not exist
	ErrNotFound = errors.New("file not found")

	// ErrNotAFile is returned when the image path is a directory or device
	ErrNotAFile = errors.New("path is not a file")

	// ErrUnsupportedFormat is returned for extensions outside SupportedExtensions
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrFileTooLarge is returned when the image exceeds MaxFileSize
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrEmptyFile is returned for zero-byte images
	ErrEmptyFile = errors.New("file is empty")
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// SupportedExtensions returns the accepted file extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(mimeTypes))
	for ext := range mimeTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether path has an accepted image extension.
func IsSupported(path string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MIMEType returns the MIME type for path's extension, or an empty string.
func MIMEType(path string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(path))]
}

// Validate checks that path is an existing, non-empty regular file with a
// supported extension and no larger than MaxFileSize.
func Validate(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat,
			filepath.Ext(path), strings.Join(SupportedExtensions(), ", "))
	}

	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %.2f MB > %d MB", ErrFileTooLarge,
			float64(info.Size())/(1024*1024), MaxFileSize/(1024*1024))
	}

	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	return info, nil
}

// ListImages returns the supported image files directly inside dir, sorted
// by path. Subdirectories are not descended into.
func ListImages(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid folder %s: not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", dir, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		// follow symlinks
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		images = append(images, path)
	}
	sort.Strings(images)
	return images, nil
}
