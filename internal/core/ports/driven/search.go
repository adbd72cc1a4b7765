package driven

import (
	"context"
)

// RetrievalBackend searches one content collection (passages, facts or graph paths).
// The production vector and graph stores live outside this module; they are
// reached through this interface.
type RetrievalBackend interface {
	// Search returns at most limit hits ordered by descending score.
	// An empty result is not an error.
	Search(ctx context.Context, query string, limit int) ([]BackendHit, error)
}

// PathSearcher is implemented by graph backends that can bound traversal depth.
// The graph policy prefers it over Search when available.
type PathSearcher interface {
	SearchPaths(ctx context.Context, query string, limit, maxDepth int) ([]BackendHit, error)
}

// BackendHit represents a single match from a backend.
type BackendHit struct {
	// Key is the stable reference of the matched content. Hits from
	// different backends that describe the same content share a key.
	Key string

	// Payload is the text of the match.
	Payload string

	// Score is the backend's relevance score in [0,1].
	Score float64

	// Confidence is the extraction confidence of a fact. Unused by other backends.
	Confidence float64
}
