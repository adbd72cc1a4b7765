package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

func TestHistoryStore_AppendAssignsIDs(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	first, err := store.Append(ctx, &domain.HistoryRecord{ID: 99, Query: "a"})
	require.NoError(t, err)
	second, err := store.Append(ctx, &domain.HistoryRecord{Query: "b"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, 2, store.Len())
}

func TestHistoryStore_AppendNil(t *testing.T) {
	store := NewHistoryStore()

	_, err := store.Append(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHistoryStore_AppendCopiesRecord(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	rec := &domain.HistoryRecord{Query: "original"}

	id, err := store.Append(ctx, rec)
	require.NoError(t, err)
	rec.Query = "mutated"

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Query)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestHistoryStore_Get_NotFound(t *testing.T) {
	store := NewHistoryStore()

	_, err := store.Get(context.Background(), 7)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryStore_List(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, q := range []string{"oldest", "middle", "newest"} {
		_, err := store.Append(ctx, &domain.HistoryRecord{Query: q, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		offset  int
		limit   int
		want    []string
		wantErr bool
	}{
		{"all newest first", 0, 10, []string{"newest", "middle", "oldest"}, false},
		{"first page", 0, 2, []string{"newest", "middle"}, false},
		{"second page", 2, 2, []string{"oldest"}, false},
		{"past end", 5, 2, []string{}, false},
		{"negative limit", 0, -1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.List(ctx, tt.offset, tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			got := make([]string, 0, len(records))
			for _, r := range records {
				got = append(got, r.Query)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistoryStore_Concurrency(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Append(ctx, &domain.HistoryRecord{Query: "q"})
			_, _ = store.List(ctx, 0, 5)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
	records, err := store.List(ctx, 0, 100)
	require.NoError(t, err)
	seen := map[int64]bool{}
	for _, r := range records {
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}
