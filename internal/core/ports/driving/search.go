package driving

import (
	"context"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// SearchService provides orchestrated retrieval to external actors.
type SearchService interface {
	// Search resolves configuration, picks a policy, retrieves, generates,
	// measures and records a response for the query.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)

	// AvailablePolicies lists the policies a request may ask for.
	AvailablePolicies() []domain.PolicyDescriptor
}

// HistoryService provides read access to recorded searches.
type HistoryService interface {
	// List returns records newest first.
	List(ctx context.Context, offset, limit int) ([]domain.HistoryRecord, error)

	// Get returns a single record or domain.ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.HistoryRecord, error)
}
