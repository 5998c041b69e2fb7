package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Manager guards a ScanState and persists it as JSON. It is safe for
// concurrent use.
type Manager struct {
	state    *ScanState
	filePath string
	mu       sync.RWMutex
}

// NewManager returns a manager with an empty state backed by filePath.
func NewManager(filePath string) *Manager {
	return &Manager{
		state:    NewScanState(),
		filePath: filePath,
	}
}

// Load replaces the in-memory state with the contents of the state file.
// A missing file leaves a fresh empty state.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		m.mu.Lock()
		m.state = NewScanState()
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file %s: %w", m.filePath, err)
	}

	loaded, err := decodeState(data)
	if err != nil {
		return fmt.Errorf("state file %s: %w", m.filePath, err)
	}

	m.mu.Lock()
	m.state = loaded
	m.mu.Unlock()
	return nil
}

func decodeState(data []byte) (*ScanState, error) {
	ss := &ScanState{}
	if err := json.Unmarshal(data, ss); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if ss.Version != StateFileVersion {
		return nil, fmt.Errorf("unsupported version %d (expected %d)", ss.Version, StateFileVersion)
	}
	if ss.Images == nil {
		ss.Images = map[string]*ImageState{}
	}
	return ss, nil
}

// Save persists the state. Readers never observe a partially written file.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.state, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return writeFileAtomic(m.filePath, data)
}

// writeFileAtomic writes data to a temp file beside path and renames it over
// path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the current scan state
func (m *Manager) Snapshot() *ScanState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp := &ScanState{
		LastScan: m.state.LastScan,
		Images:   make(map[string]*ImageState, len(m.state.Images)),
		Version:  m.state.Version,
	}
	for path, img := range m.state.Images {
		c := *img
		c.Plates = append([]string(nil), img.Plates...)
		cp.Images[path] = &c
	}
	return cp
}

// GetImage returns a copy of the image state for path, or nil if not found
func (m *Manager) GetImage(path string) *ImageState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img := m.state.GetImage(path)
	if img == nil {
		return nil
	}
	c := *img
	return &c
}

// NeedsProcessing reports whether path with content hash should be
// (re)processed given the retry budget.
func (m *Manager) NeedsProcessing(path, hash string, maxRetries int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img := m.state.GetImage(path)
	if img == nil {
		return true
	}
	return img.NeedsProcessing(hash, maxRetries)
}

// MarkProcessed records a successful extraction for path
func (m *Manager) MarkProcessed(path, hash string, plates []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.image(path).MarkProcessed(hash, plates)
}

// MarkError records a failed extraction for path
func (m *Manager) MarkError(path, hash string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.image(path).MarkError(hash, err)
}

// image returns the state for path, creating it. Callers hold the lock.
func (m *Manager) image(path string) *ImageState {
	img := m.state.GetImage(path)
	if img == nil {
		img = NewImageState(path)
		m.state.AddImage(img)
	}
	return img
}

// Prune drops images no longer present in the watched folder
func (m *Manager) Prune(present []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Prune(present)
}

// UpdateLastScan updates the last scan timestamp
func (m *Manager) UpdateLastScan() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.UpdateLastScan()
}

// LastScan returns the last scan timestamp
func (m *Manager) LastScan() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.LastScan
}

// GetImagesByStatus returns copies of all images with a specific status
func (m *Manager) GetImagesByStatus(status Status) []*ImageState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ImageState
	for _, img := range m.state.GetImagesByStatus(status) {
		c := *img
		out = append(out, &c)
	}
	return out
}

// LoadOrCreate opens the state at filePath, writing an empty state file when
// none exists yet so a misconfigured path fails at startup.
func LoadOrCreate(filePath string) (*Manager, error) {
	m := NewManager(filePath)
	if err := m.Load(); err != nil {
		return nil, err
	}

	if m.Count() == 0 && m.LastScan().IsZero() {
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to initialize state file: %w", err)
		}
	}
	return m, nil
}

// Reset forgets every image and the last scan time.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.state = NewScanState()
	m.mu.Unlock()
}

// Count returns the total number of images in the state
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.Images)
}
