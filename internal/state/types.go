package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// ScanState represents the processing state of a watched folder
type ScanState struct {
	// LastScan is the timestamp of the last completed folder scan
	LastScan time.Time `json:"last_scan"`

	// Images is a map of image path to its processing state
	Images map[string]*ImageState `json:"images"`

	// Version is the state file format version
	Version int `json:"version"`
}

// ImageState represents the processing state for a single image
type ImageState struct {
	// Path is the image path as listed from the watched folder
	Path string `json:"path"`

	// Hash is the SHA256 of the image content for change detection
	Hash string `json:"hash"`

	// LastProcessed is when the image was last run through extraction
	LastProcessed time.Time `json:"last_processed"`

	Status Status `json:"status"`

	// Plates are the plate texts found on the last successful run
	Plates []string `json:"plates,omitempty"`

	// Error contains the error message from the last failed attempt
	Error string `json:"error,omitempty"`

	// RetryCount is the number of consecutive failed attempts for Hash
	RetryCount int `json:"retry_count"`
}

// Status represents the processing status of an image
type Status string

const (
	// StatusPending indicates the image has not been processed
	StatusPending Status = "pending"

	// StatusCompleted indicates extraction completed successfully
	StatusCompleted Status = "completed"

	// StatusFailed indicates the last extraction attempt failed
	StatusFailed Status = "failed"
)

// StateFileVersion is the current version of the state file format
const StateFileVersion = 1

// NewScanState creates a new empty ScanState
func NewScanState() *ScanState {
	return &ScanState{
		Images:  make(map[string]*ImageState),
		Version: StateFileVersion,
	}
}

// NewImageState creates a new pending ImageState
func NewImageState(path string) *ImageState {
	return &ImageState{
		Path:   path,
		Status: StatusPending,
	}
}

// NeedsProcessing returns true if the image content changed since the last
// run, was never processed, or failed fewer than maxRetries times.
func (is *ImageState) NeedsProcessing(hash string, maxRetries int) bool {
	if is.Hash != hash {
		return true
	}

	switch is.Status {
	case StatusCompleted:
		return false
	case StatusFailed:
		return is.RetryCount < maxRetries
	default:
		return true
	}
}

// MarkProcessed records a successful extraction of content hash
func (is *ImageState) MarkProcessed(hash string, plates []string) {
	is.Hash = hash
	is.Plates = plates
	is.LastProcessed = time.Now()
	is.Status = StatusCompleted
	is.Error = ""
	is.RetryCount = 0
}

// MarkError records a failed extraction of content hash
func (is *ImageState) MarkError(hash string, err error) {
	if is.Hash != hash {
		is.RetryCount = 0
	}
	is.Hash = hash
	is.LastProcessed = time.Now()
	is.Status = StatusFailed
	is.Error = err.Error()
	is.RetryCount++
}

// GetImage returns the ImageState for a path, or nil if not found
func (ss *ScanState) GetImage(path string) *ImageState {
	return ss.Images[path]
}

// AddImage adds or updates an image in the scan state
func (ss *ScanState) AddImage(img *ImageState) {
	ss.Images[img.Path] = img
}

// RemoveImage removes an image from the scan state
func (ss *ScanState) RemoveImage(path string) {
	delete(ss.Images, path)
}

// UpdateLastScan updates the last scan timestamp
func (ss *ScanState) UpdateLastScan() {
	ss.LastScan = time.Now()
}

// GetImagesByStatus returns all images with the specified status, sorted by path
func (ss *ScanState) GetImagesByStatus(status Status) []*ImageState {
	var imgs []*ImageState
	for _, img := range ss.Images {
		if img.Status == status {
			imgs = append(imgs, img)
		}
	}
	sort.Slice(imgs, func(i, j int) bool { return imgs[i].Path < imgs[j].Path })
	return imgs
}

// Prune removes images that are not in present and returns how many were removed
func (ss *ScanState) Prune(present []string) int {
	keep := make(map[string]struct{}, len(present))
	for _, p := range present {
		keep[p] = struct{}{}
	}
	removed := 0
	for path := range ss.Images {
		if _, ok := keep[path]; !ok {
			ss.RemoveImage(path)
			removed++
		}
	}
	return removed
}

// HashFile returns the hex SHA256 of the file at path
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
