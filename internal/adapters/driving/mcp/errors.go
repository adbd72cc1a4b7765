// Package mcp provides an MCP (Model Context Protocol) server adapter for polyrag.
// It lets AI assistants run orchestrated retrieval and read the search history.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrHistoryUnavailable is returned by history tools when no history service is wired.
	ErrHistoryUnavailable = errors.New("mcp: history is not available")

	// ErrGatewayUnavailable is returned by providers_reconnect when no gateway is wired.
	ErrGatewayUnavailable = errors.New("mcp: generation gateway is not available")
)
