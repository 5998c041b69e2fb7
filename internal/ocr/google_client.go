package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/plate"
	"google.golang.org/api/option"
)

// GoogleRecognizer reads frames with a Gemini model. The Gemini client does
// not retry, so attempts go through withRetry.
type GoogleRecognizer struct {
	visionModel
	client *genai.Client
}

// NewGoogleRecognizer creates a Gemini recognizer.
func NewGoogleRecognizer(ctx context.Context, cfg *Config, prompt string, log *logger.Logger) (*GoogleRecognizer, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	vm := newVisionModel(ProviderGoogle, cfg, prompt, log)
	vm.retries = cfg.MaxRetries
	return &GoogleRecognizer{visionModel: vm, client: client}, nil
}

// Recognize sends the frame bytes inline next to the prompt.
func (g *GoogleRecognizer) Recognize(ctx context.Context, img *imaging.Prepared) (*plate.Detection, error) {
	return g.recognize(ctx, img, g.ask)
}

func (g *GoogleRecognizer) ask(ctx context.Context, img *imaging.Prepared) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(float32(g.temperature))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(g.prompt), genai.ImageData(img.Format(), img.Data))
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok && txt != "" {
				return string(txt), nil
			}
		}
	}
	return "", errors.New("response has no text part")
}

// HealthCheck fetches the model metadata to verify credentials.
func (g *GoogleRecognizer) HealthCheck(ctx context.Context) error {
	if _, err := g.client.GenerativeModel(g.model).Info(ctx); err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}
