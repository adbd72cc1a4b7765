// Package openai provides a language model provider for the OpenAI chat
// completions API and servers compatible with it.
package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/polyrag/internal/adapters/driven/llm"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultLLMModel = "gpt-4o-mini"
)

// Config holds configuration for the OpenAI provider.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL may point at any OpenAI-compatible server.
	BaseURL string

	Model   string
	Timeout time.Duration
}

// Provider generates text using /chat/completions.
type Provider struct {
	client *llm.Client
	model  string
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewProvider creates an OpenAI provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	return &Provider{
		client: llm.NewClient("openai", cfg.BaseURL, cfg.Timeout, header),
		model:  cfg.Model,
	}, nil
}

// Name returns "openai".
func (p *Provider) Name() string {
	return "openai"
}

// Generate sends the system and user messages and returns the first choice.
func (p *Provider) Generate(ctx context.Context, in driven.GenerateRequest) (*driven.GenerateResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if in.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: in.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: in.Prompt})

	body, err := p.client.Post(ctx, "/chat/completions", chatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   max(in.MaxTokens, 0),
		Temperature: max(in.Temperature, 0),
		Stop:        in.StopWords,
	})
	if err != nil {
		return nil, err
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return nil, errors.New("openai: no response choices returned")
	}
	model := gjson.GetBytes(body, "model").String()
	if model == "" {
		model = p.model
	}
	return &driven.GenerateResponse{
		Text:             content.String(),
		Model:            model,
		PromptTokens:     llm.TokenCount(body, "usage.prompt_tokens"),
		CompletionTokens: llm.TokenCount(body, "usage.completion_tokens"),
	}, nil
}

// Ping lists models, which checks the key without running inference.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Get(ctx, "/models")
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
