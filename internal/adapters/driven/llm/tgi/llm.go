// Package tgi provides a language model provider backed by a HuggingFace
// Text Generation Inference server.
package tgi

import (
	"context"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/polyrag/internal/adapters/driven/llm"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// DefaultBaseURL is where a local TGI container listens.
const DefaultBaseURL = "http://localhost:8080"

// defaultModel labels results when no model name is configured.
const defaultModel = "tgi"

// Config holds configuration for the TGI provider.
type Config struct {
	BaseURL string

	// Model labels results. TGI serves a single model chosen at launch.
	Model string

	Timeout time.Duration
}

// Provider generates text using a TGI server.
type Provider struct {
	client *llm.Client
	model  string
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	Temperature    float64  `json:"temperature,omitempty"`
	MaxNewTokens   int      `json:"max_new_tokens,omitempty"`
	Stop           []string `json:"stop,omitempty"`
	Details        bool     `json:"details"`
	ReturnFullText bool     `json:"return_full_text"`
}

// NewProvider creates a TGI provider. Empty fields take the defaults.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		client: llm.NewClient("tgi", cfg.BaseURL, cfg.Timeout, nil),
		model:  cfg.Model,
	}
}

// Name returns "tgi".
func (p *Provider) Name() string {
	return "tgi"
}

// Generate produces a completion through /generate. TGI has no system role,
// so the system instruction is prepended to the prompt.
func (p *Provider) Generate(ctx context.Context, in driven.GenerateRequest) (*driven.GenerateResponse, error) {
	inputs := in.Prompt
	if in.System != "" {
		inputs = in.System + "\n\n" + in.Prompt
	}

	body, err := p.client.Post(ctx, "/generate", generateRequest{
		Inputs: inputs,
		Parameters: parameters{
			Temperature:  in.Temperature,
			MaxNewTokens: in.MaxTokens,
			Stop:         in.StopWords,
			Details:      true,
		},
	})
	if err != nil {
		return nil, err
	}

	return &driven.GenerateResponse{
		Text:             strings.TrimSpace(gjson.GetBytes(body, "generated_text").String()),
		Model:            p.model,
		PromptTokens:     llm.TokenCount(body, "details.prompt_tokens"),
		CompletionTokens: llm.TokenCount(body, "details.generated_tokens"),
	}, nil
}

// Ping checks /health, which answers 200 once the model is loaded.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Get(ctx, "/health")
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
