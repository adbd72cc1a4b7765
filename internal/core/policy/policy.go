package policy

import (
	"context"
	"errors"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Policy is the contract shared by every retrieval strategy.
type Policy interface {
	// Kind returns the concrete kind of the policy.
	Kind() domain.PolicyKind

	// Retrieve returns at most limit items ordered by descending relevance.
	// An empty context is valid.
	Retrieve(ctx context.Context, query string, limit int) (*domain.RetrievalContext, error)

	// Generate produces an answer grounded in rc. It returns
	// domain.ErrGenerationUnavailable when no provider can serve it.
	Generate(ctx context.Context, query string, rc *domain.RetrievalContext) (*domain.GenerationResult, error)

	// Justify derives the evidence trail from rc alone.
	Justify(rc *domain.RetrievalContext) domain.Justification

	// Measure computes request metrics. It never fails; values that cannot
	// be computed are left nil.
	Measure(query string, gen *domain.GenerationResult, rc *domain.RetrievalContext) domain.Metrics
}

// Generator produces text through the provider gateway.
type Generator interface {
	Generate(ctx context.Context, req driven.GenerateRequest) (*domain.GenerationResult, error)
}

// CategoryScorer returns per-source relevance estimates for a query.
// The smart hybrid policy uses it to skip low-value sources.
type CategoryScorer interface {
	Scores(ctx context.Context, query string) (map[domain.Source]float64, error)
}

// errNoBackend is returned by a single-source policy without a backend.
var errNoBackend = errors.New("no retrieval backend configured")

// base holds what every policy shares: its kind, the request configuration
// and the generator.
type base struct {
	kind domain.PolicyKind
	cfg  domain.RAGConfig
	gen  Generator
}

// Kind returns the policy kind.
func (b *base) Kind() domain.PolicyKind {
	return b.kind
}

// Generate answers from the retrieved context. With nothing retrieved it
// returns an explicit no-context answer without calling a model.
func (b *base) Generate(
	ctx context.Context, query string, rc *domain.RetrievalContext,
) (*domain.GenerationResult, error) {
	if rc.IsEmpty() {
		return &domain.GenerationResult{
			Text:  domain.NoContextAnswer,
			Model: domain.NoContextModel,
		}, nil
	}
	if b.gen == nil {
		return nil, domain.ErrGenerationUnavailable
	}

	req := buildRequest(b.kind, b.cfg, query, rc)
	res, err := b.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Justify lists the retrieved items as evidence.
func (b *base) Justify(rc *domain.RetrievalContext) domain.Justification {
	return justify(b.kind, rc)
}

// Measure computes metrics from the generation result and context.
func (b *base) Measure(_ string, gen *domain.GenerationResult, rc *domain.RetrievalContext) domain.Metrics {
	return measure(gen, rc)
}
