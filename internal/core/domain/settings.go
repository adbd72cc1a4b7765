package domain

import "strings"

// unknownDescription labels enum values outside their known set.
const unknownDescription = "Unknown"

// AIProvider identifies a language model provider.
type AIProvider string

// Supported providers.
const (
	AIProviderTGI       AIProvider = "tgi"
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

type providerInfo struct {
	description string
	needsKey    bool
}

var providerCatalogue = map[AIProvider]providerInfo{
	AIProviderTGI:       {description: "Text Generation Inference (self-hosted)"},
	AIProviderOllama:    {description: "Ollama (local)"},
	AIProviderOpenAI:    {description: "OpenAI (cloud)", needsKey: true},
	AIProviderAnthropic: {description: "Anthropic (cloud)", needsKey: true},
}

// AIProviders lists the supported providers in the default preference order.
func AIProviders() []AIProvider {
	return []AIProvider{AIProviderTGI, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// ParseAIProvider reads a provider name, ignoring case and surrounding space.
func ParseAIProvider(name string) (AIProvider, bool) {
	p := AIProvider(strings.ToLower(strings.TrimSpace(name)))
	return p, p.IsValid()
}

// IsValid reports whether p is a supported provider.
func (p AIProvider) IsValid() bool {
	_, ok := providerCatalogue[p]
	return ok
}

// RequiresAPIKey reports whether p needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return providerCatalogue[p].needsKey
}

func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	if info, ok := providerCatalogue[p]; ok {
		return info.description
	}
	return unknownDescription
}

// LLMSettings is the resolved configuration of one provider.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string

	// APIKey is required by the cloud providers only.
	APIKey string
}

// IsConfigured reports whether the provider can be built from these settings.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && (!l.Provider.RequiresAPIKey() || l.APIKey != "")
}
