// Package ollama is a small HTTP client for a local Ollama server, covering
// what platescan needs: vision generation, model presence and health.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/platescan/internal/logger"
)

const (
	// DefaultEndpoint is the default Ollama API endpoint
	DefaultEndpoint = "http://localhost:11434"

	// DefaultTimeout bounds a single HTTP request. Vision models on CPU are slow.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxRetries is the default number of retries after the first attempt
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the first backoff delay; it doubles on each retry
	DefaultRetryDelay = time.Second

	// maxResponseSize caps how much of a response body is read
	maxResponseSize = 16 << 20
)

// APIError is a non-2xx answer from Ollama
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama API error (status %d): %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to one Ollama server
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
	maxRetries int
	retryDelay time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithEndpoint sets the server address
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithMaxRetries sets how many times a failed request is repeated
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the first backoff delay
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// NewClient creates a client for DefaultEndpoint unless overridden
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger.Get(),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c
}

// Endpoint returns the server address
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Generate runs a non-streamed generation
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.call(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Vision sends images to a vision model and returns its answer text. The
// answer is constrained to JSON.
func (c *Client) Vision(ctx context.Context, vr VisionRequest) (string, error) {
	req := &GenerateRequest{
		Model:  vr.Model,
		Prompt: vr.Prompt,
		Images: vr.Images,
		Format: "json",
	}
	if vr.Temperature != nil {
		req.Options = &Options{Temperature: *vr.Temperature}
	}

	resp, err := c.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if !resp.Done {
		return "", fmt.Errorf("ollama returned an incomplete response for %s", vr.Model)
	}
	return resp.Response, nil
}

// Models lists the installed models
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var resp tagsResponse
	if err := c.call(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// EnsureModel pulls model unless it is installed. It reports whether a pull
// happened. A bare name also matches its ":latest" tag.
func (c *Client) EnsureModel(ctx context.Context, model string) (bool, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == model || m.Name == model+":latest" {
			return false, nil
		}
	}

	c.logger.WithFields("model", model).Info("Model not installed, pulling")
	var resp pullResponse
	if err := c.call(ctx, http.MethodPost, "/api/pull", pullRequest{Name: model}, &resp); err != nil {
		return false, fmt.Errorf("failed to pull %s: %w", model, err)
	}
	c.logger.WithFields("model", model, "status", resp.Status).Info("Model pulled")
	return true, nil
}

// Ping checks that the server answers and returns its version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var resp versionResponse
	if err := c.send(ctx, http.MethodGet, "/api/version", nil, &resp); err != nil {
		return "", fmt.Errorf("ollama is not accessible at %s: %w", c.endpoint, err)
	}
	return resp.Version, nil
}

// call is send with exponential backoff on transport errors and temporary
// API errors.
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	delay := c.retryDelay
	for attempt := 0; ; attempt++ {
		err := c.send(ctx, method, path, in, out)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case !retryable(err):
			return err
		case attempt == c.maxRetries && attempt == 0:
			return err
		case attempt == c.maxRetries:
			return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
		}

		c.logger.Debugf("ollama %s %s failed (attempt %d/%d), retrying in %v: %v",
			method, path, attempt+1, c.maxRetries+1, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

// send performs one request. in is JSON encoded when non-nil and a 2xx body
// is decoded into out when non-nil.
func (c *Client) send(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseSize)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(limited)
		msg := strings.TrimSpace(string(raw))
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
