package mcp

import (
	"github.com/custodia-labs/polyrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search runs orchestrated retrieval.
	Search driving.SearchService

	// History reads recorded searches. Optional.
	History driving.HistoryService

	// Config exposes the retrieval defaults. Optional.
	Config driving.ConfigResolver

	// Gateway backs the providers_reconnect tool. Optional.
	Gateway driving.ProviderGateway
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
