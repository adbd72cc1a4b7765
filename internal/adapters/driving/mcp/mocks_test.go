package mcp

import (
	"context"

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
	return m.resp, m.err
}

func (m *mockSearchService) AvailablePolicies() []domain.PolicyDescriptor {
	return domain.PolicyDescriptors()
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	records    []domain.HistoryRecord
	record     *domain.HistoryRecord
	err        error
	lastOffset int
	lastLimit  int
}

func (m *mockHistoryService) List(_ context.Context, offset, limit int) ([]domain.HistoryRecord, error) {
	m.lastOffset, m.lastLimit = offset, limit
	return m.records, m.err
}

func (m *mockHistoryService) Get(_ context.Context, _ int64) (*domain.HistoryRecord, error) {
	return m.record, m.err
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

// mockGateway is a mock implementation of driving.ProviderGateway.
type mockGateway struct {
	next       string
	err        error
	active     string
	reconnects int
}

func (m *mockGateway) Init(context.Context) error { return nil }

func (m *mockGateway) Reconnect(context.Context) error {
	m.reconnects++
	m.active = m.next
	if m.err != nil {
		return m.err
	}
	if m.active == "" {
		return domain.ErrGenerationUnavailable
	}
	return nil
}

func (m *mockGateway) Active() string { return m.active }
