package policy

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// mockBackend is a mock implementation of driven.RetrievalBackend.
// The delay ignores cancellation, like a backend without cancel support.
type mockBackend struct {
	mu        sync.Mutex
	hits      []driven.BackendHit
	err       error
	delay     time.Duration
	lastLimit int
	calls     int
}

func (m *mockBackend) Search(_ context.Context, _ string, limit int) ([]driven.BackendHit, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if len(m.hits) > limit {
		return m.hits[:limit], nil
	}
	return m.hits, nil
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// deadlineBackend blocks until ctx ends, then answers with hits, or with
// ctx.Err() when hits is nil.
type deadlineBackend struct {
	hits []driven.BackendHit
}

func (m *deadlineBackend) Search(ctx context.Context, _ string, _ int) ([]driven.BackendHit, error) {
	<-ctx.Done()
	if m.hits == nil {
		return nil, ctx.Err()
	}
	return m.hits, nil
}

// mockPathBackend also implements driven.PathSearcher.
type mockPathBackend struct {
	mockBackend
	lastDepth int
}

func (m *mockPathBackend) SearchPaths(ctx context.Context, query string, limit, maxDepth int) ([]driven.BackendHit, error) {
	m.lastDepth = maxDepth
	return m.Search(ctx, query, limit)
}

// mockGenerator is a mock implementation of Generator.
type mockGenerator struct {
	result  *domain.GenerationResult
	err     error
	lastReq driven.GenerateRequest
	calls   int
}

func (m *mockGenerator) Generate(_ context.Context, req driven.GenerateRequest) (*domain.GenerationResult, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.GenerationResult{Text: "generated answer", Model: "mock"}, nil
}

// mockScorer is a mock implementation of CategoryScorer.
type mockScorer struct {
	scores map[domain.Source]float64
	err    error
}

func (m *mockScorer) Scores(_ context.Context, _ string) (map[domain.Source]float64, error) {
	return m.scores, m.err
}

func hits(pairs ...any) []driven.BackendHit {
	out := make([]driven.BackendHit, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key := pairs[i].(string)
		out = append(out, driven.BackendHit{
			Key:        key,
			Payload:    "content of " + key,
			Score:      pairs[i+1].(float64),
			Confidence: 1,
		})
	}
	return out
}

func testConfig() domain.RAGConfig {
	cfg := domain.DefaultRAGConfig()
	cfg.SimilarityThreshold = 0
	cfg.FactConfidenceThreshold = 0
	return cfg
}
