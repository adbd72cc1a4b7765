// Package domain defines the core entities of the retrieval orchestrator.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RAGConfig: Per-request retrieval parameters
//   - PolicyKind and Source: Retrieval strategies and their backends
//   - RetrievalContext: Ranked evidence produced by a policy
//   - SelectionResult: How a policy was chosen for a query
//   - HistoryRecord: An append-only record of a completed search
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
