package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/plate"
)

// OpenAIRecognizer reads frames with an OpenAI vision-capable chat model.
type OpenAIRecognizer struct {
	visionModel
	client openai.Client
}

// NewOpenAIRecognizer creates an OpenAI recognizer. cfg.Endpoint, when set,
// replaces the API base URL so proxies and compatible servers work.
func NewOpenAIRecognizer(cfg *Config, prompt string, log *logger.Logger) *OpenAIRecognizer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &OpenAIRecognizer{
		visionModel: newVisionModel(ProviderOpenAI, cfg, prompt, log),
		client:      openai.NewClient(opts...),
	}
}

// Recognize sends the frame inline as a data URL.
func (o *OpenAIRecognizer) Recognize(ctx context.Context, img *imaging.Prepared) (*plate.Detection, error) {
	return o.recognize(ctx, img, o.ask)
}

func (o *OpenAIRecognizer) ask(ctx context.Context, img *imaging.Prepared) (string, error) {
	dataURL := "data:" + img.MIMEType + ";base64," + img.Base64()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(o.prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck looks up the configured model, which also proves the key.
func (o *OpenAIRecognizer) HealthCheck(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model); err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	return nil
}
