package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
	"github.com/custodia-labs/polyrag/internal/logger"
)

// Ensure the single-source policies implement Policy.
var (
	_ Policy = (*TextPolicy)(nil)
	_ Policy = (*FactsPolicy)(nil)
	_ Policy = (*GraphPolicy)(nil)
)

// sourcePolicy retrieves from a single backend.
type sourcePolicy struct {
	base
	source  domain.Source
	backend driven.RetrievalBackend

	// accept reports whether a hit passes the policy's quality threshold.
	// When no hit passes, the unfiltered ranking is used instead.
	accept func(hit driven.BackendHit) bool

	// search overrides backend.Search when set.
	search func(ctx context.Context, query string, limit int) ([]driven.BackendHit, error)
}

// Retrieve queries the backend for a candidate pool, filters it and
// truncates to limit.
func (p *sourcePolicy) Retrieve(ctx context.Context, query string, limit int) (*domain.RetrievalContext, error) {
	if p.backend == nil {
		return nil, fmt.Errorf("%s policy: %w", p.source, errNoBackend)
	}
	if limit <= 0 {
		limit = p.cfg.TopKResults
	}
	pool := p.cfg.CandidatePool(p.source, limit)

	search := p.backend.Search
	if p.search != nil {
		search = p.search
	}

	logger.Debug("%s retrieval: pool=%d, limit=%d", p.source, pool, limit)
	hits, err := search(ctx, query, pool)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s retrieval: %w", p.source, domain.ErrRetrievalTimeout)
		}
		return nil, fmt.Errorf("%s retrieval: %w", p.source, err)
	}

	items := make([]domain.RetrievalItem, 0, len(hits))
	accepted := make([]domain.RetrievalItem, 0, len(hits))
	for _, hit := range hits {
		it := domain.RetrievalItem{
			Key:     hit.Key,
			Content: hit.Payload,
			Score:   clamp01(hit.Score),
			Source:  p.source,
		}
		items = append(items, it)
		if p.accept == nil || p.accept(hit) {
			accepted = append(accepted, it)
		}
	}

	fallback := len(accepted) == 0 && len(items) > 0
	if fallback {
		logger.Debug("%s retrieval: no candidate passed the threshold, using unfiltered ranking", p.source)
		accepted = items
	}
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})
	if len(accepted) > limit {
		accepted = accepted[:limit]
	}

	rc := domain.NewRetrievalContext()
	rc.Items = accepted
	rc.Metadata["source"] = string(p.source)
	rc.Metadata["candidates"] = len(hits)
	rc.Metadata["threshold_fallback"] = fallback
	rc.Metadata["applied_settings"] = p.cfg.Clone()
	logger.Debug("%s retrieval: %d candidates, %d returned", p.source, len(hits), len(accepted))
	return rc, nil
}

// TextPolicy ranks passages by similarity.
// Passages below similarity_threshold are dropped unless none pass.
type TextPolicy struct {
	sourcePolicy
}

// NewTextPolicy creates a text policy.
func NewTextPolicy(cfg domain.RAGConfig, backend driven.RetrievalBackend, gen Generator) *TextPolicy {
	p := &TextPolicy{sourcePolicy{
		base:    base{kind: domain.PolicyText, cfg: cfg, gen: gen},
		source:  domain.SourceText,
		backend: backend,
	}}
	p.accept = func(hit driven.BackendHit) bool {
		return hit.Score >= cfg.SimilarityThreshold
	}
	return p
}

// FactsPolicy ranks fact records.
// A fact must meet both similarity_threshold and fact_confidence_threshold.
type FactsPolicy struct {
	sourcePolicy
}

// NewFactsPolicy creates a facts policy.
func NewFactsPolicy(cfg domain.RAGConfig, backend driven.RetrievalBackend, gen Generator) *FactsPolicy {
	p := &FactsPolicy{sourcePolicy{
		base:    base{kind: domain.PolicyFacts, cfg: cfg, gen: gen},
		source:  domain.SourceFacts,
		backend: backend,
	}}
	p.accept = func(hit driven.BackendHit) bool {
		return hit.Score >= cfg.SimilarityThreshold && hit.Confidence >= cfg.FactConfidenceThreshold
	}
	return p
}

// GraphPolicy ranks relation paths.
// Backends implementing driven.PathSearcher are bounded by graph_max_depth.
type GraphPolicy struct {
	sourcePolicy
}

// NewGraphPolicy creates a graph policy.
func NewGraphPolicy(cfg domain.RAGConfig, backend driven.RetrievalBackend, gen Generator) *GraphPolicy {
	p := &GraphPolicy{sourcePolicy{
		base:    base{kind: domain.PolicyGraph, cfg: cfg, gen: gen},
		source:  domain.SourceGraph,
		backend: backend,
	}}
	if ps, ok := backend.(driven.PathSearcher); ok {
		p.search = func(ctx context.Context, query string, limit int) ([]driven.BackendHit, error) {
			return ps.SearchPaths(ctx, query, limit, cfg.GraphMaxDepth)
		}
	}
	return p
}
