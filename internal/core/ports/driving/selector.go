package driving

import (
	"context"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// PolicySelector chooses a concrete policy for a query.
type PolicySelector interface {
	// Select returns the chosen kind with its scores and explanation.
	// A threshold <= 0 uses the selector default.
	Select(ctx context.Context, query string, threshold float64) (*domain.SelectionResult, error)

	// Scores returns the final per-source distribution for a query.
	Scores(ctx context.Context, query string) (map[domain.Source]float64, error)
}
