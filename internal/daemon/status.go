package daemon

import (
	"sync"
	"time"
)

// Phase represents the current state of the watch loop
type Phase string

const (
	// PhaseIdle indicates the daemon is running but not actively scanning
	PhaseIdle Phase = "idle"

	// PhaseScanning indicates a folder scan is in progress
	PhaseScanning Phase = "scanning"

	// PhaseError indicates the last scan failed
	PhaseError Phase = "error"
)

// Status represents the current daemon status
type Status struct {
	// State is the current phase (idle, scanning, error)
	State Phase `json:"state"`

	// WatchDir is the folder being watched
	WatchDir string `json:"watch_dir"`

	// LastScanTime is the timestamp of the last scan attempt
	LastScanTime *time.Time `json:"last_scan_time,omitempty"`

	// NextScanTime is the estimated time of the next scheduled scan
	NextScanTime *time.Time `json:"next_scan_time,omitempty"`

	// ScanDuration is how long the last scan took
	ScanDuration *time.Duration `json:"scan_duration,omitempty"`

	// ErrorMessage contains the error from the last failed scan
	ErrorMessage string `json:"error_message,omitempty"`

	CurrentScan *ScanProgress `json:"current_scan,omitempty"`

	LastScanResult *ScanSummary `json:"last_scan_result,omitempty"`

	// UptimeSeconds is how long the daemon has been running
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ScanProgress tracks an in-progress scan
type ScanProgress struct {
	StartTime       time.Time `json:"start_time"`
	ImagesTotal     int       `json:"images_total"`
	ImagesProcessed int       `json:"images_processed"`
	CurrentImage    string    `json:"current_image,omitempty"`
}

// ScanSummary contains a summary of a completed scan
type ScanSummary struct {
	RunID     string        `json:"run_id,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	// TotalImages is the number of supported images in the folder
	TotalImages int `json:"total_images"`

	// ProcessedImages is how many new or changed images were processed
	ProcessedImages int `json:"processed_images"`

	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`

	// SkippedCount is how many images were unchanged since the last scan
	SkippedCount int `json:"skipped_count"`

	PlatesFound int `json:"plates_found"`

	// ReportPath is where the run's report was written, if any
	ReportPath string `json:"report_path,omitempty"`
}

// StatusTracker holds the daemon status behind a lock. The zero value is not
// usable; call NewStatusTracker.
type StatusTracker struct {
	mu      sync.RWMutex
	status  Status
	started time.Time
}

// NewStatusTracker returns an idle tracker for watchDir.
func NewStatusTracker(watchDir string) *StatusTracker {
	return &StatusTracker{
		status:  Status{State: PhaseIdle, WatchDir: watchDir},
		started: time.Now(),
	}
}

// GetStatus returns a copy of the status that shares no memory with the
// tracker.
func (st *StatusTracker) GetStatus() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s := st.status
	if s.CurrentScan != nil {
		cur := *s.CurrentScan
		s.CurrentScan = &cur
	}
	s.UptimeSeconds = int64(time.Since(st.started).Seconds())
	return s
}

// Ready reports whether a scan has completed since startup.
func (st *StatusTracker) Ready() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.status.LastScanResult != nil
}

// ScanStarted moves to the scanning phase.
func (st *StatusTracker) ScanStarted(totalImages int) {
	now := time.Now()

	st.mu.Lock()
	defer st.mu.Unlock()
	st.status.State = PhaseScanning
	st.status.LastScanTime = &now
	st.status.ErrorMessage = ""
	st.status.CurrentScan = &ScanProgress{StartTime: now, ImagesTotal: totalImages}
}

// UpdateProgress is a no-op outside a scan.
func (st *StatusTracker) UpdateProgress(processed int, currentImage string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur := st.status.CurrentScan; cur != nil {
		cur.ImagesProcessed = processed
		cur.CurrentImage = currentImage
	}
}

// ScanCompleted returns to idle and publishes summary.
func (st *StatusTracker) ScanCompleted(summary ScanSummary) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.finish(PhaseIdle, summary.Duration)
	st.status.LastScanResult = &summary
	st.status.ErrorMessage = ""
}

// ScanFailed moves to the error phase. The previous summary is kept.
func (st *StatusTracker) ScanFailed(err error, duration time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.finish(PhaseError, duration)
	if err != nil {
		st.status.ErrorMessage = err.Error()
	}
}

func (st *StatusTracker) finish(phase Phase, took time.Duration) {
	st.status.State = phase
	st.status.CurrentScan = nil
	st.status.ScanDuration = &took
}

// SetNextScanTime records when the ticker fires next.
func (st *StatusTracker) SetNextScanTime(t time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.status.NextScanTime = &t
}
