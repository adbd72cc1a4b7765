package driven

import (
	"context"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// LearnedScorer predicts a policy distribution for a query from a trained model.
// It is optional; without it the selector runs on heuristics alone.
type LearnedScorer interface {
	// PredictDistribution returns a score per source. Values need not sum to 1.
	PredictDistribution(ctx context.Context, query string) (map[domain.Source]float64, error)
}
