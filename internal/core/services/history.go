package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
	"github.com/custodia-labs/polyrag/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// DefaultHistoryPageSize is used when List is called without a limit.
const DefaultHistoryPageSize = 20

// HistoryService provides read-only access to recorded searches.
type HistoryService struct {
	store driven.HistoryStore
}

// NewHistoryService creates a new history service. A nil store makes every
// read fail with domain.ErrHistoryUnavailable.
func NewHistoryService(store driven.HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// List returns records newest first.
func (s *HistoryService) List(ctx context.Context, offset, limit int) ([]domain.HistoryRecord, error) {
	if s.store == nil {
		return nil, domain.ErrHistoryUnavailable
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultHistoryPageSize
	}
	return s.store.List(ctx, offset, limit)
}

// Get returns a single record.
func (s *HistoryService) Get(ctx context.Context, id int64) (*domain.HistoryRecord, error) {
	if s.store == nil {
		return nil, domain.ErrHistoryUnavailable
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: record id must be positive", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}
