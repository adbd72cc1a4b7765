package driven

import (
	"context"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// HistoryStore is the append-only log of completed searches.
type HistoryStore interface {
	// Append stores a record and returns its assigned ID.
	// IDs increase monotonically. The record's ID field is ignored.
	Append(ctx context.Context, rec *domain.HistoryRecord) (int64, error)

	// List returns records ordered by creation time, newest first.
	List(ctx context.Context, offset, limit int) ([]domain.HistoryRecord, error)

	// Get returns a single record. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*domain.HistoryRecord, error)
}
