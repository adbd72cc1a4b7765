// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMProvider is one language model backend behind the provider gateway.
//
// Implementations include:
//   - Text Generation Inference (self-hosted HuggingFace server)
//   - Ollama (local models)
//   - OpenAI
//   - Anthropic (Claude)
type LLMProvider interface {
	// Name identifies the provider in logs and results (e.g. "ollama").
	Name() string

	// Ping validates the provider is reachable by making a lightweight request.
	// The gateway uses it to pick the first healthy provider.
	Ping(ctx context.Context) error

	// Generate produces a completion for the request.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Close releases resources.
	Close() error
}

// GenerateRequest is a provider-neutral completion request.
type GenerateRequest struct {
	// Prompt is the user turn, including the retrieved context.
	Prompt string

	// System is the system instruction. Optional.
	System string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// GenerateResponse is the provider output before timing is attached.
// Token counts are nil when the provider did not report them.
type GenerateResponse struct {
	Text             string
	Model            string
	PromptTokens     *int
	CompletionTokens *int
}
