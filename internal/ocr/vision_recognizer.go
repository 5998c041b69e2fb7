package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/platescan/internal/imaging"
	"github.com/platinummonkey/platescan/internal/logger"
	"github.com/platinummonkey/platescan/internal/plate"
)

// askFunc sends one image and the prompt to a model and returns its raw text
// answer.
type askFunc func(ctx context.Context, img *imaging.Prepared) (string, error)

// visionModel holds what the LLM-backed recognizers share: the model and
// prompt, the per-call timeout, and for SDKs without their own retry policy a
// retry budget.
type visionModel struct {
	provider    ProviderType
	logger      *logger.Logger
	model       string
	prompt      string
	temperature float64
	timeout     time.Duration

	// retries is zero when the underlying client already retries
	retries    int
	retryDelay time.Duration
}

func newVisionModel(provider ProviderType, cfg *Config, prompt string, log *logger.Logger) visionModel {
	if log == nil {
		log = logger.Get()
	}
	return visionModel{
		provider:    provider,
		logger:      log,
		model:       cfg.Model,
		prompt:      prompt,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		retryDelay:  cfg.RetryDelay,
	}
}

// Name returns the provider name.
func (v visionModel) Name() string {
	return string(v.provider)
}

// recognize runs ask, each attempt bounded by the timeout, and decodes the
// answer into a detection sized to img.
func (v visionModel) recognize(ctx context.Context, img *imaging.Prepared, ask askFunc) (*plate.Detection, error) {
	log := v.logger.WithImage(img.Path).WithFields("provider", v.provider, "model", v.model)
	log.Debug("Recognizing with vision model")
	start := time.Now()

	var answer string
	attempt := func() error {
		callCtx, cancel := withTimeout(ctx, v.timeout)
		defer cancel()

		var err error
		answer, err = ask(callCtx, img)
		return err
	}

	var err error
	if v.retries > 0 {
		err = withRetry(ctx, v.retries, v.retryDelay, log, attempt)
	} else {
		err = attempt()
	}
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", v.provider, err)
	}

	det, err := parseVisionResponse(answer, img.Width, img.Height)
	if err != nil {
		log.WithFields("answer", answer).Debug("Vision answer is not valid OCR JSON")
		return nil, fmt.Errorf("%s: %w", v.provider, err)
	}

	log.WithFields("lines", len(det.Lines), "words", len(det.Words), "duration", time.Since(start)).
		Debug("Vision OCR completed")
	return det, nil
}
