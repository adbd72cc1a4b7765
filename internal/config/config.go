// Package config defines the process-wide settings of polyrag and loads them
// from built-in defaults, the TOML config file and POLYRAG_* environment variables.
package config

import (
	"time"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// Settings is the complete process configuration.
type Settings struct {
	Log      LogSettings      `koanf:"log"`
	Search   domain.RAGConfig `koanf:"search"`
	Selector SelectorSettings `koanf:"selector"`
	LLM      LLMSettings      `koanf:"llm"`
	History  HistorySettings  `koanf:"history"`
	Corpus   CorpusSettings   `koanf:"corpus"`
}

// LogSettings controls diagnostic output.
type LogSettings struct {
	Verbose bool `koanf:"verbose"`
	JSON    bool `koanf:"json"`
}

// SelectorSettings controls automatic policy selection.
type SelectorSettings struct {
	// Threshold is the minimum confidence for a single-source policy.
	// Below it the hybrid policy is used.
	Threshold float64 `koanf:"threshold" validate:"gte=0,lte=1"`

	// Alpha is the weight of the heuristic scores when a learned model is present.
	Alpha float64 `koanf:"alpha" validate:"gte=0,lte=1"`

	// ModelPath points at a learned router model. Empty disables it.
	ModelPath string `koanf:"model_path"`

	// CacheSize bounds the number of cached learned predictions.
	CacheSize int `koanf:"cache_size" validate:"gte=1"`
}

// ProviderSettings configures one language model endpoint.
type ProviderSettings struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
}

// LLMSettings configures the provider gateway.
type LLMSettings struct {
	// Preference lists providers in the order they are probed.
	Preference []string `koanf:"preference" validate:"dive,oneof=tgi ollama openai anthropic"`

	// ProbeTimeout bounds each health probe.
	ProbeTimeout time.Duration `koanf:"probe_timeout" validate:"gt=0"`

	// RequestTimeout bounds each generation request.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`

	// RateLimit is the maximum generations per second. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	Burst     int     `koanf:"burst" validate:"gte=0"`

	TGI       ProviderSettings `koanf:"tgi"`
	Ollama    ProviderSettings `koanf:"ollama"`
	OpenAI    ProviderSettings `koanf:"openai"`
	Anthropic ProviderSettings `koanf:"anthropic"`
}

// HistorySettings configures the history store.
type HistorySettings struct {
	// Driver is "sqlite" or "memory".
	Driver string `koanf:"driver" validate:"oneof=sqlite memory"`

	// Dir is the sqlite data directory. Empty means ~/.polyrag/data.
	Dir string `koanf:"dir"`

	// Retries is how many times a failed history write is retried.
	Retries int `koanf:"retries" validate:"gte=0"`
}

// CorpusSettings points at the content served by the built-in backends.
type CorpusSettings struct {
	// Path is a TOML corpus file. Empty starts with empty backends.
	Path string `koanf:"path"`

	// Documents is a directory of markdown and text files added as passages,
	// chunked by search.chunk_size and search.chunk_overlap.
	Documents string `koanf:"documents"`

	// Watch reloads the corpus when the file or the documents change.
	Watch bool `koanf:"watch"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Search: domain.DefaultRAGConfig(),
		Selector: SelectorSettings{
			Threshold: 0.6,
			Alpha:     0.7,
			CacheSize: 1024,
		},
		LLM: LLMSettings{
			Preference:     []string{"tgi", "ollama"},
			ProbeTimeout:   5 * time.Second,
			RequestTimeout: 120 * time.Second,
			TGI:            ProviderSettings{BaseURL: "http://localhost:8080"},
			Ollama:         ProviderSettings{BaseURL: "http://localhost:11434", Model: "llama3.2"},
			OpenAI:         ProviderSettings{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
			Anthropic:      ProviderSettings{BaseURL: "https://api.anthropic.com", Model: "claude-3-5-haiku-latest"},
		},
		History: HistorySettings{
			Driver:  "sqlite",
			Retries: 3,
		},
	}
}

// Providers returns the configured providers in preference order.
// Unknown names and providers missing required credentials are skipped.
func (s *Settings) Providers() []domain.LLMSettings {
	out := make([]domain.LLMSettings, 0, len(s.LLM.Preference))
	seen := make(map[domain.AIProvider]bool)
	for _, name := range s.LLM.Preference {
		p, ok := domain.ParseAIProvider(name)
		if !ok || seen[p] {
			continue
		}
		var ps ProviderSettings
		switch p {
		case domain.AIProviderTGI:
			ps = s.LLM.TGI
		case domain.AIProviderOllama:
			ps = s.LLM.Ollama
		case domain.AIProviderOpenAI:
			ps = s.LLM.OpenAI
		case domain.AIProviderAnthropic:
			ps = s.LLM.Anthropic
		default:
			continue
		}
		ls := domain.LLMSettings{Provider: p, Model: ps.Model, BaseURL: ps.BaseURL, APIKey: ps.APIKey}
		if !ls.IsConfigured() {
			continue
		}
		seen[p] = true
		out = append(out, ls)
	}
	return out
}
