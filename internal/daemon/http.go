package daemon

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/platescan/internal/state"
)

// ControlResponse is the body of the scan control endpoints.
type ControlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler serves health, readiness, status and scan control. Control
// endpoints only accept POST.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	})
	mux.HandleFunc("/ready", d.handleReady)
	mux.HandleFunc("GET /status", d.handleStatus)
	mux.HandleFunc("GET /api/images/failed", d.handleFailedImages)
	mux.HandleFunc("POST /api/scan/trigger", d.handleTriggerScan)
	mux.HandleFunc("POST /api/scan/cancel", d.handleCancelScan)
	return mux
}

func (d *Daemon) handleReady(w http.ResponseWriter, _ *http.Request) {
	if d.statusTracker.Ready() {
		writeText(w, http.StatusOK, "OK")
		return
	}
	writeText(w, http.StatusServiceUnavailable, "NOT READY")
}

func (d *Daemon) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.statusTracker.GetStatus())
}

// handleFailedImages lists images whose last attempt failed, with their
// retry counts, so operators can see what the retry budget gave up on.
func (d *Daemon) handleFailedImages(w http.ResponseWriter, _ *http.Request) {
	failed := d.state.GetImagesByStatus(state.StatusFailed)
	if failed == nil {
		failed = []*state.ImageState{}
	}
	writeJSON(w, http.StatusOK, failed)
}

func (d *Daemon) handleTriggerScan(w http.ResponseWriter, _ *http.Request) {
	switch {
	case d.statusTracker.GetStatus().State == PhaseScanning:
		writeJSON(w, http.StatusConflict, ControlResponse{Message: "Scan already in progress"})
	case !d.control.triggerScan():
		writeJSON(w, http.StatusConflict, ControlResponse{Message: "Scan already queued"})
	default:
		d.logger.Info("Manual scan requested")
		writeJSON(w, http.StatusAccepted, ControlResponse{Success: true, Message: "Scan queued"})
	}
}

func (d *Daemon) handleCancelScan(w http.ResponseWriter, _ *http.Request) {
	if !d.control.cancel() {
		writeJSON(w, http.StatusConflict, ControlResponse{Message: "No scan in progress"})
		return
	}
	d.logger.Info("Scan cancellation requested")
	writeJSON(w, http.StatusAccepted, ControlResponse{Success: true, Message: "Scan cancellation requested"})
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body + "\n"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
