// Package ocr turns a prepared camera frame into a normalized text detection
// using Tesseract or a vision-capable LLM provider.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/plate"
)

// ErrUnsupportedProvider is returned for provider names outside the known set.
var ErrUnsupportedProvider = errors.New("unsupported OCR provider")

// Recognizer reads the text of an image.
type Recognizer interface {
	// Recognize returns the line and word blocks found in img. Confidences are
	// on a 0-100 scale and boxes are normalized to the image size.
	Recognize(ctx context.Context, img *imaging.Prepared) (*plate.Detection, error)

	// HealthCheck verifies that the provider is reachable and usable
	HealthCheck(ctx context.Context) error

	// Name returns the provider name (e.g. "tesseract", "openai")
	Name() string
}

// ProviderType represents an OCR provider
type ProviderType string

const (
	// ProviderTesseract runs the local Tesseract engine
	ProviderTesseract ProviderType = "tesseract"

	// ProviderOllama represents a local Ollama instance
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI represents OpenAI's vision-capable chat models
	ProviderOpenAI ProviderType = "openai"

	// ProviderAnthropic represents Anthropic's Claude API with vision
	ProviderAnthropic ProviderType = "anthropic"

	// ProviderGoogle represents Google's Gemini API
	ProviderGoogle ProviderType = "google"
)

type providerInfo struct {
	defaultModel string
	// keyEnv lists the environment variables holding the API key, in lookup
	// order. Empty for providers that need no key.
	keyEnv []string
}

var providerTable = map[ProviderType]providerInfo{
	ProviderTesseract: {},
	ProviderOllama:    {defaultModel: "llava"},
	ProviderOpenAI:    {defaultModel: "gpt-4o", keyEnv: []string{"OPENAI_API_KEY"}},
	ProviderAnthropic: {defaultModel: "claude-3-5-sonnet-20241022", keyEnv: []string{"ANTHROPIC_API_KEY"}},
	ProviderGoogle:    {defaultModel: "gemini-1.5-pro", keyEnv: []string{"GOOGLE_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS"}},
}

// Providers returns every supported provider.
func Providers() []ProviderType {
	return []ProviderType{ProviderTesseract, ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderGoogle}
}

// IsValidProvider reports whether name is a supported provider. Names are
// case sensitive.
func IsValidProvider(name string) bool {
	_, ok := providerTable[ProviderType(name)]
	return ok
}

// DefaultModelForProvider returns the model used when none is configured.
func DefaultModelForProvider(provider ProviderType) string {
	return providerTable[provider].defaultModel
}

// APIKeyEnv returns the environment variables consulted for the provider's
// API key, or nil when it needs none.
func APIKeyEnv(provider ProviderType) []string {
	return providerTable[provider].keyEnv
}

// RequiresAPIKey reports whether the provider is a cloud API.
func RequiresAPIKey(provider ProviderType) bool {
	return len(providerTable[provider].keyEnv) > 0
}

func missingKeyError(provider ProviderType) error {
	return fmt.Errorf("%s API key is required (set %s)", provider, strings.Join(APIKeyEnv(provider), " or "))
}

// Config holds the settings shared by all recognizers.
type Config struct {
	// Provider selects the recognizer implementation
	Provider ProviderType

	// Model is the vision model name; unused by Tesseract
	Model string

	// Endpoint is the API endpoint (Ollama only)
	Endpoint string

	// APIKey for cloud providers
	APIKey string

	// MaxRetries is the maximum number of retry attempts per image
	MaxRetries int

	// RetryDelay is the initial backoff delay; it doubles on every attempt
	RetryDelay time.Duration

	// Temperature controls randomness (0.0 = deterministic, recommended for OCR)
	Temperature float64

	// Languages are Tesseract language codes (default: ["eng"])
	Languages []string

	// Timeout bounds a single recognition call; zero means no limit
	Timeout time.Duration

	// PromptFile optionally overrides the vision prompt (YAML)
	PromptFile string
}
