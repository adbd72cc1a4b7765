// Package ollama provides a language model provider backed by an Ollama server.
package ollama

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/polyrag/internal/adapters/driven/llm"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL  = "http://localhost:11434"
	DefaultLLMModel = "llama3.2"
)

// Config holds configuration for the Ollama provider.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider generates text through /api/generate.
type Provider struct {
	client *llm.Client
	model  string
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// NewProvider creates an Ollama provider. Empty fields take the defaults.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	return &Provider{
		client: llm.NewClient("ollama", cfg.BaseURL, cfg.Timeout, nil),
		model:  cfg.Model,
	}
}

// Name returns "ollama".
func (p *Provider) Name() string {
	return "ollama"
}

// Generate runs a non-streaming completion.
func (p *Provider) Generate(ctx context.Context, in driven.GenerateRequest) (*driven.GenerateResponse, error) {
	req := generateRequest{
		Model:  p.model,
		Prompt: in.Prompt,
		System: in.System,
	}
	if in.MaxTokens > 0 || in.Temperature > 0 || len(in.StopWords) > 0 {
		req.Options = &options{
			NumPredict:  in.MaxTokens,
			Temperature: in.Temperature,
			Stop:        in.StopWords,
		}
	}

	body, err := p.client.Post(ctx, "/api/generate", req)
	if err != nil {
		return nil, err
	}

	model := gjson.GetBytes(body, "model").String()
	if model == "" {
		model = p.model
	}
	return &driven.GenerateResponse{
		Text:             gjson.GetBytes(body, "response").String(),
		Model:            model,
		PromptTokens:     llm.TokenCount(body, "prompt_eval_count"),
		CompletionTokens: llm.TokenCount(body, "eval_count"),
	}, nil
}

// Ping lists local models, which needs no inference.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Get(ctx, "/api/tags")
}

// Close is a no-op; the HTTP client holds no resources of its own.
func (p *Provider) Close() error {
	return nil
}
