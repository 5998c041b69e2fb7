package ollama

import "time"

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"` // base64 encoded
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"` // "json" constrains the answer to JSON
	// Options are model parameters; nil leaves the model defaults
	Options *Options `json:"options,omitempty"`
}

// Options are the model parameters platescan sets
type Options struct {
	Temperature float64 `json:"temperature"`
}

// GenerateResponse is a non-streamed /api/generate answer
type GenerateResponse struct {
	Model         string    `json:"model"`
	Response      string    `json:"response"`
	Done          bool      `json:"done"`
	CreatedAt     time.Time `json:"created_at"`
	TotalDuration int64     `json:"total_duration,omitempty"` // nanoseconds
}

// VisionRequest asks a vision model about one or more images
type VisionRequest struct {
	Model  string
	Prompt string
	Images []string // base64 encoded
	// Temperature is sent when set
	Temperature *float64
}

// Model is an installed model as listed by /api/tags
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}
