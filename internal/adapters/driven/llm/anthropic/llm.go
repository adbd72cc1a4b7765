// Package anthropic provides a language model provider for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/polyrag/internal/adapters/driven/llm"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"

	// defaultMaxTokens is sent when the request leaves MaxTokens unset;
	// the API rejects requests without it.
	defaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic provider.
type Config struct {
	// APIKey is required.
	APIKey string

	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider generates text using /v1/messages.
type Provider struct {
	client *llm.Client
	model  string
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewProvider creates an Anthropic provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", anthropicVersion)
	return &Provider{
		client: llm.NewClient("anthropic", cfg.BaseURL, cfg.Timeout, header),
		model:  cfg.Model,
	}, nil
}

// Name returns "anthropic".
func (p *Provider) Name() string {
	return "anthropic"
}

// Generate sends one user message and joins the text blocks of the reply.
func (p *Provider) Generate(ctx context.Context, in driven.GenerateRequest) (*driven.GenerateResponse, error) {
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := p.client.Post(ctx, "/v1/messages", messagesRequest{
		Model:       p.model,
		Messages:    []message{{Role: "user", Content: in.Prompt}},
		MaxTokens:   maxTokens,
		System:      in.System,
		Temperature: max(in.Temperature, 0),
		StopSeqs:    in.StopWords,
	})
	if err != nil {
		return nil, err
	}

	blocks := gjson.GetBytes(body, `content.#(type=="text")#.text`).Array()
	if len(blocks) == 0 {
		return nil, errors.New("anthropic: no text content returned")
	}
	var text strings.Builder
	for _, b := range blocks {
		text.WriteString(b.String())
	}

	model := gjson.GetBytes(body, "model").String()
	if model == "" {
		model = p.model
	}
	return &driven.GenerateResponse{
		Text:             text.String(),
		Model:            model,
		PromptTokens:     llm.TokenCount(body, "usage.input_tokens"),
		CompletionTokens: llm.TokenCount(body, "usage.output_tokens"),
	}, nil
}

// Ping lists models, which checks the key without running inference.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Get(ctx, "/v1/models")
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
