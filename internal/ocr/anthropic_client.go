package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/plate"
)

// anthropicMaxTokens bounds the JSON answer.
const anthropicMaxTokens = 4096

// AnthropicRecognizer reads frames with a Claude model.
type AnthropicRecognizer struct {
	visionModel
	client anthropic.Client
}

// NewAnthropicRecognizer creates an Anthropic recognizer.
func NewAnthropicRecognizer(cfg *Config, prompt string, log *logger.Logger) *AnthropicRecognizer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicRecognizer{
		visionModel: newVisionModel(ProviderAnthropic, cfg, prompt, log),
		client:      anthropic.NewClient(opts...),
	}
}

// Recognize sends the frame as a base64 image block.
func (a *AnthropicRecognizer) Recognize(ctx context.Context, img *imaging.Prepared) (*plate.Detection, error) {
	return a.recognize(ctx, img, a.ask)
}

func (a *AnthropicRecognizer) ask(ctx context.Context, img *imaging.Prepared) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(a.prompt),
				anthropic.NewImageBlockBase64(img.MIMEType, img.Base64()),
			),
		},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", err
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("message has no text block")
}

// HealthCheck sends a tiny text-only message.
func (a *AnthropicRecognizer) HealthCheck(ctx context.Context) error {
	_, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 10,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("ping"))},
	})
	if err != nil {
		return fmt.Errorf("anthropic health check failed: %w", err)
	}
	return nil
}
