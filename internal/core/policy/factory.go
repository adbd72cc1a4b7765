package policy

import (
	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Backends holds one retrieval backend per source. Any may be nil; policies
// over a missing backend fail at retrieval time.
type Backends struct {
	Text  driven.RetrievalBackend
	Facts driven.RetrievalBackend
	Graph driven.RetrievalBackend
}

// Factory builds policies for a resolved configuration.
type Factory struct {
	backends Backends
	gen      Generator
	scorer   CategoryScorer
}

// NewFactory creates a policy factory.
// The generator and scorer are optional (can be nil).
func NewFactory(backends Backends, gen Generator, scorer CategoryScorer) *Factory {
	return &Factory{
		backends: backends,
		gen:      gen,
		scorer:   scorer,
	}
}

// Create returns the policy for kind. Auto and unrecognised kinds fail with
// *domain.UnknownPolicyError.
func (f *Factory) Create(kind domain.PolicyKind, cfg domain.RAGConfig) (Policy, error) {
	switch kind {
	case domain.PolicyText:
		return NewTextPolicy(cfg, f.backends.Text, f.gen), nil
	case domain.PolicyFacts:
		return NewFactsPolicy(cfg, f.backends.Facts, f.gen), nil
	case domain.PolicyGraph:
		return NewGraphPolicy(cfg, f.backends.Graph, f.gen), nil
	case domain.PolicyHybrid:
		return NewHybridPolicy(cfg, f.subPolicies(cfg), f.gen), nil
	case domain.PolicySmartHybrid:
		return NewSmartHybridPolicy(cfg, f.subPolicies(cfg), f.scorer, f.gen), nil
	default:
		return nil, &domain.UnknownPolicyError{Kind: kind}
	}
}

// subPolicies builds the single-source policies used by fusion.
func (f *Factory) subPolicies(cfg domain.RAGConfig) map[domain.Source]Policy {
	return map[domain.Source]Policy{
		domain.SourceText:  NewTextPolicy(cfg, f.backends.Text, f.gen),
		domain.SourceFacts: NewFactsPolicy(cfg, f.backends.Facts, f.gen),
		domain.SourceGraph: NewGraphPolicy(cfg, f.backends.Graph, f.gen),
	}
}
