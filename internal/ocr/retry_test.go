package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
)

func TestWithRetry(t *testing.T) {
	log := logger.NewNop()
	errBusy := errors.New("busy")

	tests := []struct {
		name         string
		maxRetries   int
		failures     int
		wantAttempts int
		wantErr      bool
	}{
		{"first try", 3, 0, 1, false},
		{"recovers", 3, 2, 3, false},
		{"exhausted", 2, 5, 3, true},
		{"no retries", 0, 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := withRetry(context.Background(), tt.maxRetries, time.Millisecond, log, func() error {
				attempts++
				if attempts <= tt.failures {
					return errBusy
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("withRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errBusy) {
				t.Errorf("expected wrapped cause, got %v", err)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := withRetry(ctx, 5, time.Hour, logger.NewNop(), func() error {
		attempts++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestVisionModel_Recognize(t *testing.T) {
	vm := visionModel{
		provider:   ProviderGoogle,
		logger:     logger.NewNop(),
		model:      "m",
		timeout:    time.Second,
		retries:    2,
		retryDelay: time.Millisecond,
	}

	calls := 0
	det, err := vm.recognize(context.Background(), testImage(), func(ctx context.Context, _ *imaging.Prepared) (string, error) {
		calls++
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a per-attempt deadline")
		}
		if calls < 3 {
			return "", errors.New("unavailable")
		}
		return `{"lines":[{"text":"DL 3C AB 1234","confidence":0.7}]}`, nil
	})
	if err != nil {
		t.Fatalf("recognize() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(det.Lines) != 1 || !approx(det.Lines[0].Confidence, 70) {
		t.Errorf("unexpected detection %+v", det)
	}

	vm.retries = 0
	calls = 0
	_, err = vm.recognize(context.Background(), testImage(), func(context.Context, *imaging.Prepared) (string, error) {
		calls++
		return "I could not read the plate.", nil
	})
	if err == nil || calls != 1 {
		t.Errorf("expected one call and a parse error, got calls=%d err=%v", calls, err)
	}
}
