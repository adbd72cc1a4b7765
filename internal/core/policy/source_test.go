package policy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

func TestTextPolicy_Retrieve(t *testing.T) {
	backend := &mockBackend{hits: hits("b", 0.75, "a", 0.9, "c", 0.8, "d", 0.1)}
	cfg := domain.DefaultRAGConfig()
	p := NewTextPolicy(cfg, backend, nil)

	rc, err := p.Retrieve(context.Background(), "query", 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys(rc.Items))
	assert.Equal(t, domain.SourceText, rc.Items[0].Source)
	assert.Equal(t, "content of a", rc.Items[0].Content)
	assert.Equal(t, cfg.TextRerankTopN, backend.lastLimit)
	assert.Equal(t, false, rc.Metadata["threshold_fallback"])
	assert.Equal(t, 4, rc.Metadata["candidates"])
	assert.Equal(t, domain.PolicyText, p.Kind())
}

func TestTextPolicy_ThresholdFallback(t *testing.T) {
	backend := &mockBackend{hits: hits("a", 0.3, "b", 0.5)}
	p := NewTextPolicy(domain.DefaultRAGConfig(), backend, nil)

	rc, err := p.Retrieve(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys(rc.Items))
	assert.Equal(t, true, rc.Metadata["threshold_fallback"])
}

func TestTextPolicy_DefaultLimitAndClamp(t *testing.T) {
	backend := &mockBackend{hits: hits("a", 1.4, "b", 0.9, "c", 0.85, "d", 0.8, "e", 0.75, "f", 0.72, "g", -0.2)}
	cfg := domain.DefaultRAGConfig()
	p := NewTextPolicy(cfg, backend, nil)

	rc, err := p.Retrieve(context.Background(), "query", 0)

	require.NoError(t, err)
	assert.Len(t, rc.Items, cfg.TopKResults)
	assert.Equal(t, 1.0, rc.Items[0].Score)
}

func TestTextPolicy_EmptyBackend(t *testing.T) {
	p := NewTextPolicy(domain.DefaultRAGConfig(), &mockBackend{}, nil)

	rc, err := p.Retrieve(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.True(t, rc.IsEmpty())
	assert.Equal(t, false, rc.Metadata["threshold_fallback"])
}

func TestFactsPolicy_RequiresConfidence(t *testing.T) {
	backend := &mockBackend{hits: []driven.BackendHit{
		{Key: "f1", Payload: "a likes b", Score: 0.95, Confidence: 0.2},
		{Key: "f2", Payload: "b likes c", Score: 0.8, Confidence: 0.9},
		{Key: "f3", Payload: "c likes d", Score: 0.5, Confidence: 0.9},
	}}
	p := NewFactsPolicy(domain.DefaultRAGConfig(), backend, nil)

	rc, err := p.Retrieve(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"f2"}, keys(rc.Items))
	assert.Equal(t, domain.SourceFacts, rc.Items[0].Source)
}

func TestFactsPolicy_FallbackWhenNonePass(t *testing.T) {
	backend := &mockBackend{hits: []driven.BackendHit{
		{Key: "f1", Score: 0.95, Confidence: 0.1},
		{Key: "f2", Score: 0.4, Confidence: 0.9},
	}}
	p := NewFactsPolicy(domain.DefaultRAGConfig(), backend, nil)

	rc, err := p.Retrieve(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, keys(rc.Items))
	assert.Equal(t, true, rc.Metadata["threshold_fallback"])
}

func TestGraphPolicy_UsesPathSearcher(t *testing.T) {
	backend := &mockPathBackend{mockBackend: mockBackend{hits: hits("a->b", 0.6, "a->c->d", 0.9)}}
	cfg := testConfig()
	cfg.GraphMaxDepth = 2
	p := NewGraphPolicy(cfg, backend, nil)

	rc, err := p.Retrieve(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, 2, backend.lastDepth)
	assert.Equal(t, cfg.GraphMaxPaths, backend.lastLimit)
	assert.Equal(t, []string{"a->c->d", "a->b"}, keys(rc.Items))
	assert.Equal(t, domain.SourceGraph, rc.Items[0].Source)
}

func TestGraphPolicy_PlainBackend(t *testing.T) {
	backend := &mockBackend{hits: hits("p", 0.5)}
	p := NewGraphPolicy(testConfig(), backend, nil)

	rc, err := p.Retrieve(context.Background(), "query", 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"p"}, keys(rc.Items))
	assert.Equal(t, 1, backend.callCount())
}

func TestSourcePolicy_NoBackend(t *testing.T) {
	p := NewTextPolicy(testConfig(), nil, nil)

	_, err := p.Retrieve(context.Background(), "query", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, errNoBackend)
}

func TestSourcePolicy_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		timeout bool
	}{
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{"other", errors.New("index corrupt"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFactsPolicy(testConfig(), &mockBackend{err: tt.err}, nil)

			_, err := p.Retrieve(context.Background(), "query", 5)

			require.Error(t, err)
			assert.Equal(t, tt.timeout, errors.Is(err, domain.ErrRetrievalTimeout))
		})
	}
}
