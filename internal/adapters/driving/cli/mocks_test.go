package cli

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	resp    *domain.SearchResponse
	err     error
	lastReq domain.SearchRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockSearchService) AvailablePolicies() []domain.PolicyDescriptor {
	return domain.PolicyDescriptors()
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	records []domain.HistoryRecord
}

func (m *mockHistoryService) List(_ context.Context, offset, limit int) ([]domain.HistoryRecord, error) {
	if offset >= len(m.records) {
		return nil, nil
	}
	end := min(offset+limit, len(m.records))
	return m.records[offset:end], nil
}

func (m *mockHistoryService) Get(_ context.Context, id int64) (*domain.HistoryRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// mockConfigResolver is a mock implementation of driving.ConfigResolver.
type mockConfigResolver struct{}

func (m *mockConfigResolver) Defaults() domain.RAGConfig {
	return domain.DefaultRAGConfig()
}

func (m *mockConfigResolver) Resolve(_ map[string]any) (domain.RAGConfig, error) {
	return domain.DefaultRAGConfig(), nil
}

func (m *mockConfigResolver) Override(cfg domain.RAGConfig, _ map[string]any) (domain.RAGConfig, error) {
	return cfg, nil
}

// mockConfigStore is an in-memory driven.ConfigStore.
type mockConfigStore struct {
	data map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{data: map[string]any{}}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Unset(key string) error {
	for k := range m.data {
		if k == key || strings.HasPrefix(k, key+".") {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *mockConfigStore) Load() error { return nil }

func (m *mockConfigStore) All() map[string]any {
	return maps.Clone(m.data)
}

func (m *mockConfigStore) Path() string { return "/tmp/polyrag/config.toml" }

func testSearchResponse() *domain.SearchResponse {
	id := int64(3)
	rc := domain.NewRetrievalContext()
	rc.Items = []domain.RetrievalItem{
		{Key: "path:0-1", Content: "Paris -[capital of]-> France -[member of]-> European Union", Score: 0.57, Source: domain.SourceGraph},
	}
	return &domain.SearchResponse{
		RequestID:     "req-1",
		Query:         "How is Paris connected to the European Union?",
		RequestedKind: domain.PolicyAuto,
		Kind:          domain.PolicyGraph,
		Response:      "Paris is the capital of France, a member of the European Union.",
		Context:       rc,
		Metrics: domain.Metrics{
			SearchTime:     4 * time.Millisecond,
			GenerationTime: 1500 * time.Millisecond,
			TotalTime:      1510 * time.Millisecond,
			TokensUsed:     94,
		},
		Selection: &domain.SelectionResult{
			Kind:        domain.PolicyGraph,
			Candidate:   domain.PolicyGraph,
			Confidence:  0.82,
			Explanation: "Selected Graph RAG with very high confidence (82.0%).",
		},
		RecordID: &id,
	}
}

type testEnv struct {
	search  *mockSearchService
	history *mockHistoryService
	store   *mockConfigStore
}

// mockGateway is a mock implementation of driving.ProviderGateway.
type mockGateway struct {
	active     string
	afterRetry string
	inits      int
	reconnects int
}

func (m *mockGateway) Init(context.Context) error {
	m.inits++
	if m.active == "" {
		return domain.ErrGenerationUnavailable
	}
	return nil
}

func (m *mockGateway) Reconnect(context.Context) error {
	m.reconnects++
	m.active = m.afterRetry
	if m.active == "" {
		return domain.ErrGenerationUnavailable
	}
	return nil
}

func (m *mockGateway) Active() string { return m.active }

// setupTestServices injects mocks and returns a cleanup function.
func setupTestServices() (*testEnv, func()) {
	env := &testEnv{
		search: &mockSearchService{resp: testSearchResponse()},
		history: &mockHistoryService{records: []domain.HistoryRecord{
			{ID: 2, Query: "second", Kind: domain.PolicyFacts, RequestedKind: domain.PolicyAuto, Response: "42.", CreatedAt: time.Now()},
			{ID: 1, Query: "first", Kind: domain.PolicyText, RequestedKind: domain.PolicyText, Response: "Yes.", CreatedAt: time.Now()},
		}},
		store: newMockConfigStore(),
	}

	SetServices(&Services{
		Search:  env.search,
		History: env.history,
		Config:  &mockConfigResolver{},
		Store:   env.store,
		Providers: func(context.Context) []ProviderReport {
			return []ProviderReport{
				{Provider: domain.AIProviderTGI, Model: "mistral", BaseURL: "http://localhost:8080", Err: errors.New("connection refused")},
				{Provider: domain.AIProviderOllama, Model: "llama3.2", BaseURL: "http://localhost:11434"},
			}
		},
	})

	return env, func() {
		SetServices(nil)
		loader = nil
	}
}

// execute runs the root command with args and resets flag state afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	searchPolicy, searchLimit, searchSet, searchThreshold, searchJSON = "auto", 0, nil, 0, false
	historyOffset, historyLimit, historyJSON = 0, 20, false
	policiesJSON, configJSON = false, false
	mcpListen, versionShort = "", false
	providersReconnect = false
	opts = Options{}
}
