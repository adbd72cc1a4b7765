package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/policy"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// mockLearnedScorer is a mock implementation of driven.LearnedScorer.
type mockLearnedScorer struct {
	dist  map[domain.Source]float64
	err   error
	calls int
}

func (m *mockLearnedScorer) PredictDistribution(_ context.Context, _ string) (map[domain.Source]float64, error) {
	m.calls++
	return m.dist, m.err
}

// mockProvider is a mock implementation of driven.LLMProvider.
type mockProvider struct {
	mu        sync.Mutex
	name      string
	pingErr   error
	resp      *driven.GenerateResponse
	genErr    error
	pings     int
	generates int
	closed    bool
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.pingErr
}

func (m *mockProvider) Generate(_ context.Context, _ driven.GenerateRequest) (*driven.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generates++
	if m.genErr != nil {
		return nil, m.genErr
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &driven.GenerateResponse{Text: m.name + " answer", Model: m.name + "-model"}, nil
}

func (m *mockProvider) Close() error {
	m.closed = true
	return nil
}

// mockHistoryStore is a mock implementation of driven.HistoryStore.
// The first failures calls to Append fail.
type mockHistoryStore struct {
	mu       sync.Mutex
	records  []domain.HistoryRecord
	failures int
	appends  int
}

func (m *mockHistoryStore) Append(_ context.Context, rec *domain.HistoryRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.failures > 0 {
		m.failures--
		return 0, errors.New("database is locked")
	}
	r := *rec
	r.ID = int64(len(m.records) + 1)
	m.records = append(m.records, r)
	return r.ID, nil
}

func (m *mockHistoryStore) List(_ context.Context, offset, limit int) ([]domain.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HistoryRecord, 0, limit)
	for i := len(m.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockHistoryStore) Get(_ context.Context, id int64) (*domain.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.records) {
		return nil, domain.ErrNotFound
	}
	r := m.records[id-1]
	return &r, nil
}

// mockBackend is a mock implementation of driven.RetrievalBackend.
type mockBackend struct {
	hits []driven.BackendHit
	err  error
}

func (m *mockBackend) Search(_ context.Context, _ string, limit int) ([]driven.BackendHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.hits) > limit {
		return m.hits[:limit], nil
	}
	return m.hits, nil
}

// mockFactory records the kinds it was asked for and delegates to a real factory.
type mockFactory struct {
	inner *policy.Factory
	kinds []domain.PolicyKind
	cfgs  []domain.RAGConfig
}

func (m *mockFactory) Create(kind domain.PolicyKind, cfg domain.RAGConfig) (policy.Policy, error) {
	m.kinds = append(m.kinds, kind)
	m.cfgs = append(m.cfgs, cfg)
	return m.inner.Create(kind, cfg)
}

func backendHits(source string, scores ...float64) []driven.BackendHit {
	out := make([]driven.BackendHit, 0, len(scores))
	for i, s := range scores {
		key := source + "-" + string(rune('a'+i))
		out = append(out, driven.BackendHit{
			Key:        key,
			Payload:    source + " evidence " + key,
			Score:      s,
			Confidence: 0.9,
		})
	}
	return out
}
