package driving

import "github.com/custodia-labs/polyrag/internal/core/domain"

// ConfigResolver builds per-request retrieval configuration.
type ConfigResolver interface {
	// Defaults returns a copy of the process defaults.
	Defaults() domain.RAGConfig

	// Resolve applies overrides to the process defaults.
	Resolve(overrides map[string]any) (domain.RAGConfig, error)

	// Override applies overrides to an existing configuration and
	// returns a new value. cfg is not modified.
	Override(cfg domain.RAGConfig, overrides map[string]any) (domain.RAGConfig, error)
}
