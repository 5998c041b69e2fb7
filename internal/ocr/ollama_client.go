package ocr

import (
	"context"

	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/ollama"
	"github.com/platinummonkey/platescan/internal/plate"
)

// OllamaRecognizer reads frames with a vision model served by Ollama. The
// ollama client retries on its own.
type OllamaRecognizer struct {
	visionModel
	client *ollama.Client
}

// NewOllamaRecognizer creates an Ollama recognizer.
func NewOllamaRecognizer(cfg *Config, prompt string, log *logger.Logger) *OllamaRecognizer {
	vm := newVisionModel(ProviderOllama, cfg, prompt, log)

	opts := []ollama.ClientOption{
		ollama.WithLogger(vm.logger),
		ollama.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, ollama.WithEndpoint(cfg.Endpoint))
	}
	if cfg.RetryDelay > 0 {
		opts = append(opts, ollama.WithRetryDelay(cfg.RetryDelay))
	}

	return &OllamaRecognizer{visionModel: vm, client: ollama.NewClient(opts...)}
}

// Recognize asks the model for JSON output about the frame.
func (o *OllamaRecognizer) Recognize(ctx context.Context, img *imaging.Prepared) (*plate.Detection, error) {
	return o.recognize(ctx, img, func(ctx context.Context, img *imaging.Prepared) (string, error) {
		return o.client.Vision(ctx, ollama.VisionRequest{
			Model:       o.model,
			Prompt:      o.prompt,
			Images:      []string{img.Base64()},
			Temperature: &o.temperature,
		})
	})
}

// HealthCheck verifies that Ollama is accessible and pulls the model if missing
func (o *OllamaRecognizer) HealthCheck(ctx context.Context) error {
	version, err := o.client.Ping(ctx)
	if err != nil {
		return err
	}
	o.logger.WithFields("endpoint", o.client.Endpoint(), "version", version).Debug("Ollama reachable")

	_, err = o.client.EnsureModel(ctx, o.model)
	return err
}
