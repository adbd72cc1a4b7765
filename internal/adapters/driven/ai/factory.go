// Package ai provides factory functions for creating language model providers.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/polyrag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/polyrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/polyrag/internal/adapters/driven/llm/openai"
	tgillm "github.com/custodia-labs/polyrag/internal/adapters/driven/llm/tgi"
	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// BuildResult contains the providers built for the gateway.
type BuildResult struct {
	Providers []driven.LLMProvider
	Warnings  []string // Non-fatal issues that caused a provider to be skipped.
}

// Close releases all providers.
func (r *BuildResult) Close() {
	for _, p := range r.Providers {
		_ = p.Close()
	}
}

// CreateProviders builds providers in the given order. Providers that cannot
// be built are skipped with a warning; they never abort the others.
func CreateProviders(settings []domain.LLMSettings, timeout time.Duration) *BuildResult {
	result := &BuildResult{}
	for i := range settings {
		p, err := CreateProvider(&settings[i], timeout)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", settings[i].Provider, err))
			continue
		}
		if p != nil {
			result.Providers = append(result.Providers, p)
		}
	}
	return result
}

// CreateProvider creates the provider for settings.
// Returns nil if the provider is not configured.
func CreateProvider(settings *domain.LLMSettings, timeout time.Duration) (driven.LLMProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderTGI:
		return createTGI(settings, timeout), nil

	case domain.AIProviderOllama:
		return createOllama(settings, timeout), nil

	case domain.AIProviderOpenAI:
		return createOpenAI(settings, timeout)

	case domain.AIProviderAnthropic:
		return createAnthropic(settings, timeout)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// ValidateLLMConfig validates a provider configuration by creating it and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return fmt.Errorf("%w: provider is not configured", domain.ErrGenerationUnavailable)
	}

	p, err := CreateProvider(settings, 0)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrGenerationUnavailable, err)
	}
	return nil
}

// createTGI creates a Text Generation Inference provider.
func createTGI(settings *domain.LLMSettings, timeout time.Duration) driven.LLMProvider {
	return tgillm.NewProvider(tgillm.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: timeout,
	})
}

// createOllama creates an Ollama provider.
func createOllama(settings *domain.LLMSettings, timeout time.Duration) driven.LLMProvider {
	return ollamallm.NewProvider(ollamallm.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: timeout,
	})
}

// createOpenAI creates an OpenAI provider.
func createOpenAI(settings *domain.LLMSettings, timeout time.Duration) (driven.LLMProvider, error) {
	p, err := openaillm.NewProvider(openaillm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// createAnthropic creates an Anthropic provider.
func createAnthropic(settings *domain.LLMSettings, timeout time.Duration) (driven.LLMProvider, error) {
	p, err := anthropicllm.NewProvider(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
