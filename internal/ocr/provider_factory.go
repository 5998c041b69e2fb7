package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/platinummonkey/platescan/internal/logger"
)

// NewRecognizer builds the recognizer for cfg.Provider. cfg is not modified;
// an empty model falls back to DefaultModelForProvider.
func NewRecognizer(ctx context.Context, cfg *Config, log *logger.Logger) (Recognizer, error) {
	if log == nil {
		log = logger.Get()
	}
	if !IsValidProvider(string(cfg.Provider)) {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedProvider, cfg.Provider, Providers())
	}
	if RequiresAPIKey(cfg.Provider) && cfg.APIKey == "" {
		return nil, missingKeyError(cfg.Provider)
	}

	c := *cfg
	if c.Model == "" {
		c.Model = DefaultModelForProvider(c.Provider)
	}

	if c.Provider == ProviderTesseract {
		return NewTesseractRecognizer(&c, log), nil
	}

	prompt, err := resolvePrompt(&c)
	if err != nil {
		return nil, err
	}

	switch c.Provider {
	case ProviderOllama:
		return NewOllamaRecognizer(&c, prompt, log), nil
	case ProviderOpenAI:
		return NewOpenAIRecognizer(&c, prompt, log), nil
	case ProviderAnthropic:
		return NewAnthropicRecognizer(&c, prompt, log), nil
	default:
		r, err := NewGoogleRecognizer(ctx, &c, prompt, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create google recognizer: %w", err)
		}
		return r, nil
	}
}

// ValidateProviderConfig checks cfg without contacting the provider.
func ValidateProviderConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("ocr config is nil")
	}
	if !IsValidProvider(string(cfg.Provider)) {
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
	if RequiresAPIKey(cfg.Provider) && cfg.APIKey == "" {
		return missingKeyError(cfg.Provider)
	}
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
		}
	}
	switch {
	case cfg.Temperature < 0 || cfg.Temperature > 2:
		return fmt.Errorf("temperature must be within [0, 2], got %g", cfg.Temperature)
	case cfg.MaxRetries < 0:
		return fmt.Errorf("max retries cannot be negative, got %d", cfg.MaxRetries)
	}
	return nil
}
