package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/platescan/internal/logger"
)

func newTestClient(url string, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithEndpoint(url),
		WithLogger(logger.NewNop()),
		WithRetryDelay(time.Millisecond),
	}
	return NewClient(append(base, opts...)...)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		opts        []ClientOption
		wantURL     string
		wantRetries int
	}{
		{"defaults", nil, DefaultEndpoint, DefaultMaxRetries},
		{"custom endpoint", []ClientOption{WithEndpoint("http://gpu-box:11434/")}, "http://gpu-box:11434", DefaultMaxRetries},
		{"no retries", []ClientOption{WithMaxRetries(0)}, DefaultEndpoint, 0},
		{"negative retries", []ClientOption{WithMaxRetries(-2)}, DefaultEndpoint, 0},
		{"nil logger ignored", []ClientOption{WithLogger(nil), WithTimeout(time.Second)}, DefaultEndpoint, DefaultMaxRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.opts...)
			if c.Endpoint() != tt.wantURL {
				t.Errorf("Endpoint() = %q, want %q", c.Endpoint(), tt.wantURL)
			}
			if c.maxRetries != tt.wantRetries {
				t.Errorf("maxRetries = %d, want %d", c.maxRetries, tt.wantRetries)
			}
			if c.logger == nil {
				t.Error("expected a logger")
			}
		})
	}
}

func TestClient_Vision(t *testing.T) {
	temp := 0.0
	tests := []struct {
		name        string
		temperature *float64
		done        bool
		wantOptions bool
		wantErr     bool
	}{
		{"with temperature", &temp, true, true, false},
		{"model defaults", nil, true, false, false},
		{"incomplete", nil, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var req GenerateRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("failed to decode request: %v", err)
				}
				if req.Format != "json" || req.Stream {
					t.Errorf("format = %q stream = %v", req.Format, req.Stream)
				}
				if len(req.Images) != 1 || req.Images[0] != "aW1n" {
					t.Errorf("images = %v", req.Images)
				}
				if (req.Options != nil) != tt.wantOptions {
					t.Errorf("options = %+v, want present=%v", req.Options, tt.wantOptions)
				}
				_ = json.NewEncoder(w).Encode(GenerateResponse{Model: req.Model, Response: `{"lines":[]}`, Done: tt.done})
			}))
			defer server.Close()

			got, err := newTestClient(server.URL).Vision(context.Background(), VisionRequest{
				Model:       "llava",
				Prompt:      "read the plate",
				Images:      []string{"aW1n"},
				Temperature: tt.temperature,
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Vision() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != `{"lines":[]}` {
				t.Errorf("Vision() = %q", got)
			}
		})
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantAttempts int32
		wantMessage  string
	}{
		{"client error not retried", http.StatusNotFound, `{"error":"model 'llava' not found"}`, 1, "model 'llava' not found"},
		{"server error retried", http.StatusInternalServerError, `{"error":"out of memory"}`, 3, "out of memory"},
		{"rate limit retried", http.StatusTooManyRequests, `busy`, 3, "busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL, WithMaxRetries(2)).Generate(context.Background(), &GenerateRequest{Model: "llava"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMessage {
				t.Errorf("APIError = %+v", apiErr)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestClient_RetryRecovers(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"model":"llava","response":"ok","done":true}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL, WithMaxRetries(3)).Generate(context.Background(), &GenerateRequest{Model: "llava"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Response != "ok" {
		t.Errorf("response = %q", resp.Response)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).Generate(ctx, &GenerateRequest{Model: "llava"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestClient_EnsureModel(t *testing.T) {
	tests := []struct {
		model      string
		wantPulled bool
	}{
		{"llava", false},
		{"llava:latest", false},
		{"moondream:1.8b", false},
		{"moondream", true},
		{"bakllava", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			var pulled string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/tags":
					_, _ = w.Write([]byte(`{"models":[{"name":"llava:latest"},{"name":"moondream:1.8b"}]}`))
				case "/api/pull":
					var req pullRequest
					_ = json.NewDecoder(r.Body).Decode(&req)
					pulled = req.Name
					_, _ = w.Write([]byte(`{"status":"success"}`))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			}))
			defer server.Close()

			got, err := newTestClient(server.URL).EnsureModel(context.Background(), tt.model)
			if err != nil {
				t.Fatalf("EnsureModel() error = %v", err)
			}
			if got != tt.wantPulled {
				t.Errorf("EnsureModel() = %v, want %v", got, tt.wantPulled)
			}
			if tt.wantPulled && pulled != tt.model {
				t.Errorf("pulled %q, want %q", pulled, tt.model)
			}
		})
	}
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"version":"0.5.7"}`))
	}))
	defer server.Close()

	version, err := newTestClient(server.URL).Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if version != "0.5.7" {
		t.Errorf("version = %q", version)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if _, err := newTestClient(down.URL).Ping(context.Background()); err == nil {
		t.Error("expected error from unavailable server")
	}
}
