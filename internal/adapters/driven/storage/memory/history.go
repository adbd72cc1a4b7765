// Package memory provides in-memory implementations of driven ports.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore is an in-memory implementation of driven.HistoryStore.
// It backs the "memory" history driver and tests.
type HistoryStore struct {
	mu      sync.RWMutex
	records []domain.HistoryRecord
	nextID  int64
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{nextID: 1}
}

// Append stores a copy of rec and returns its assigned ID.
func (s *HistoryStore) Append(_ context.Context, rec *domain.HistoryRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil history record", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.nextID++
	s.records = append(s.records, stored)
	return stored.ID, nil
}

// List returns records newest first.
func (s *HistoryStore) List(_ context.Context, offset, limit int) ([]domain.HistoryRecord, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: negative offset or limit", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	sorted := slices.Clone(s.records)
	s.mu.RUnlock()

	slices.SortStableFunc(sorted, func(a, b domain.HistoryRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if offset >= len(sorted) {
		return []domain.HistoryRecord{}, nil
	}
	end := min(offset+limit, len(sorted))
	return sorted[offset:end], nil
}

// Get returns a single record.
func (s *HistoryStore) Get(_ context.Context, id int64) (*domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if s.records[i].ID == id {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Len returns the number of stored records.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
