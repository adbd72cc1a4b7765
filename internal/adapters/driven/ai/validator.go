package ai

import (
	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// ProviderStatus is the outcome of probing one configured provider.
type ProviderStatus struct {
	Settings domain.LLMSettings
	Err      error
}

// Healthy reports whether the probe succeeded.
func (s ProviderStatus) Healthy() bool {
	return s.Err == nil
}

// ConfigValidator checks provider configurations by pinging them.
type ConfigValidator struct{}

// NewConfigValidator creates a new provider config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateLLM validates a provider configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}

// CheckAll probes every provider in order and reports each result.
func (v *ConfigValidator) CheckAll(settings []domain.LLMSettings) []ProviderStatus {
	out := make([]ProviderStatus, 0, len(settings))
	for i := range settings {
		out = append(out, ProviderStatus{Settings: settings[i], Err: v.ValidateLLM(&settings[i])})
	}
	return out
}
