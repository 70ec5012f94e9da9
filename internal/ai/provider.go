// Package ai holds the seam to the language model. The review pipeline
// treats the model as an opaque collaborator that takes a prompt and
// returns structured text; everything deterministic lives outside this
// package.
package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/diffscope/internal/retry"
)

// Provider generates one review response for one prompt.
type Provider interface {
	Review(ctx context.Context, prompt string) (string, error)
}

// LangchainProvider implements Provider over langchaingo.
type LangchainProvider struct {
	llm         llms.Model
	temperature float64
	retry       retry.Config
	log         zerolog.Logger
}

// NewLangchainProvider builds an OpenAI-compatible provider.
func NewLangchainProvider(apiKey, model string, temperature float64, log zerolog.Logger) (*LangchainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	return &LangchainProvider{
		llm:         llm,
		temperature: temperature,
		retry:       retry.ModelConfig(),
		log:         log.With().Str("component", "ai").Logger(),
	}, nil
}

// Review sends the prompt and returns the raw response text. Transient
// API failures are retried with backoff.
func (p *LangchainProvider) Review(ctx context.Context, prompt string) (string, error) {
	var resp string
	err := retry.Do(ctx, p.retry, p.log, func() error {
		var callErr error
		resp, callErr = llms.GenerateFromSinglePrompt(ctx, p.llm, prompt,
			llms.WithTemperature(p.temperature))
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return resp, nil
}
