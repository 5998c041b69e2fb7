package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/ollama"
)

func testImage() *imaging.Prepared {
	return &imaging.Prepared{
		Path:     "frame-001.jpg",
		Data:     []byte("jpeg-bytes"),
		MIMEType: "image/jpeg",
		Width:    1000,
		Height:   500,
	}
}

func TestOllamaRecognizer_Recognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req ollama.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "llava" {
			t.Errorf("model = %s, want llava", req.Model)
		}
		if len(req.Images) != 1 || req.Images[0] != testImage().Base64() {
			t.Errorf("unexpected images %v", req.Images)
		}
		if req.Format != "json" {
			t.Errorf("format = %s, want json", req.Format)
		}

		response := map[string]interface{}{
			"model":      "llava",
			"response":   `{"lines":[{"text":"TS 08 FW 3131","bbox":[100,200,300,50],"confidence":0.93},{"text":"SPEED","bbox":[10,10,50,20],"confidence":0.6}]}`,
			"done":       true,
			"created_at": time.Now().Format(time.RFC3339),
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	r := NewOllamaRecognizer(&Config{Endpoint: server.URL, Model: "llava"}, DefaultPrompt, nil)
	det, err := r.Recognize(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if len(det.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(det.Lines))
	}
	if det.Lines[0].Text != "TS 08 FW 3131" || !approx(det.Lines[0].Confidence, 93) {
		t.Errorf("unexpected first line %+v", det.Lines[0])
	}
}

func TestOllamaRecognizer_BadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"llava","response":"sorry","done":true,"created_at":"2025-12-31T12:00:00Z"}`))
	}))
	defer server.Close()

	r := NewOllamaRecognizer(&Config{Endpoint: server.URL, Model: "llava"}, DefaultPrompt, nil)
	if _, err := r.Recognize(context.Background(), testImage()); err == nil {
		t.Error("expected parse error")
	}
}

func TestOllamaRecognizer_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		models     string
		wantPulled bool
	}{
		{"model present", `{"models":[{"name":"llava:latest"}]}`, false},
		{"model missing", `{"models":[{"name":"mistral"}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pulled := false
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/version":
					w.Write([]byte(`{"version":"0.5.7"}`))
				case "/api/tags":
					w.Write([]byte(tt.models))
				case "/api/pull":
					pulled = true
					w.Write([]byte(`{"status":"success"}`))
				default:
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
			}))
			defer server.Close()

			r := NewOllamaRecognizer(&Config{Endpoint: server.URL, Model: "llava"}, DefaultPrompt, nil)
			if err := r.HealthCheck(context.Background()); err != nil {
				t.Fatalf("HealthCheck() error = %v", err)
			}
			if pulled != tt.wantPulled {
				t.Errorf("pulled = %v, want %v", pulled, tt.wantPulled)
			}
		})
	}
}

func TestOllamaRecognizer_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewOllamaRecognizer(&Config{Endpoint: server.URL, Model: "llava"}, DefaultPrompt, nil)
	if err := r.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check error")
	}
	if r.Name() != "ollama" {
		t.Errorf("Name() = %s, want ollama", r.Name())
	}
}
