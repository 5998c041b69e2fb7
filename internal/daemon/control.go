package daemon

import (
	"context"
	"sync"
)

// scanControl lets the HTTP API queue a scan or cancel the running one. At
// most one manual trigger is queued at a time.
type scanControl struct {
	mu         sync.Mutex
	trigger    chan struct{}
	cancelScan context.CancelFunc
}

func newScanControl() *scanControl {
	return &scanControl{
		trigger: make(chan struct{}, 1),
	}
}

// triggerScan reports false when a trigger is already queued.
func (sc *scanControl) triggerScan() bool {
	select {
	case sc.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (sc *scanControl) begin(cancel context.CancelFunc) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cancelScan = cancel
}

func (sc *scanControl) end() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cancelScan = nil
}

// cancel reports whether a running scan was cancelled.
func (sc *scanControl) cancel() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancelScan == nil {
		return false
	}
	sc.cancelScan()
	return true
}
