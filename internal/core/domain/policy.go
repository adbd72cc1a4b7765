package domain

import "strings"

// PolicyKind identifies a retrieval strategy.
type PolicyKind string

const (
	// PolicyText ranks passages from the text collection.
	PolicyText PolicyKind = "text"
	// PolicyFacts ranks structured fact records.
	PolicyFacts PolicyKind = "facts"
	// PolicyGraph ranks relation paths from the knowledge graph.
	PolicyGraph PolicyKind = "graph"
	// PolicyHybrid fuses text, facts and graph results.
	PolicyHybrid PolicyKind = "hybrid"
	// PolicySmartHybrid fuses only the sources the selector finds relevant.
	PolicySmartHybrid PolicyKind = "smart_hybrid"
	// PolicyAuto asks the selector to choose. Never instantiated directly.
	PolicyAuto PolicyKind = "auto"
)

// AllPolicyKinds returns every kind accepted in a search request.
func AllPolicyKinds() []PolicyKind {
	return []PolicyKind{PolicyAuto, PolicyText, PolicyFacts, PolicyGraph, PolicyHybrid, PolicySmartHybrid}
}

// ParsePolicyKind parses a user supplied kind. Empty input means auto.
func ParsePolicyKind(s string) (PolicyKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PolicyAuto, true
	}
	k := PolicyKind(s)
	return k, k.IsValid()
}

// IsValid returns true if the kind is recognised.
func (k PolicyKind) IsValid() bool {
	switch k {
	case PolicyText, PolicyFacts, PolicyGraph, PolicyHybrid, PolicySmartHybrid, PolicyAuto:
		return true
	default:
		return false
	}
}

// IsConcrete returns true if the kind can be built by the policy factory.
func (k PolicyKind) IsConcrete() bool {
	return k.IsValid() && k != PolicyAuto
}

// String returns the string representation.
func (k PolicyKind) String() string {
	return string(k)
}

// Name returns a short display name.
func (k PolicyKind) Name() string {
	switch k {
	case PolicyAuto:
		return "Automatic selection"
	case PolicyText:
		return "Text RAG"
	case PolicyFacts:
		return "Facts RAG"
	case PolicyGraph:
		return "Graph RAG"
	case PolicyHybrid:
		return "Hybrid RAG"
	case PolicySmartHybrid:
		return "Smart hybrid RAG"
	default:
		return unknownDescription
	}
}

// Description returns a human-readable description.
func (k PolicyKind) Description() string {
	switch k {
	case PolicyAuto:
		return "Chooses the best policy for the query from keyword cues and the learned router"
	case PolicyText:
		return "Passage search over the text collection, best for explanations and definitions"
	case PolicyFacts:
		return "Structured fact lookup, best for figures, dates and entity attributes"
	case PolicyGraph:
		return "Relation paths through the knowledge graph, best for connections between entities"
	case PolicyHybrid:
		return "Weighted fusion of text, facts and graph results"
	case PolicySmartHybrid:
		return "Fusion limited to the sources the router considers relevant for the query"
	default:
		return unknownDescription
	}
}

// Source tags the backend a retrieval item came from.
type Source string

const (
	// SourceText is the passage collection.
	SourceText Source = "text"
	// SourceFacts is the fact table.
	SourceFacts Source = "facts"
	// SourceGraph is the knowledge graph.
	SourceGraph Source = "graph"
)

// Sources returns all sources in priority order.
func Sources() []Source {
	return []Source{SourceText, SourceFacts, SourceGraph}
}

// Priority orders sources for tie-breaking. Lower wins.
func (s Source) Priority() int {
	switch s {
	case SourceText:
		return 0
	case SourceFacts:
		return 1
	case SourceGraph:
		return 2
	default:
		return 3
	}
}

// Label is the short tag used when sources are mixed in one prompt.
func (s Source) Label() string {
	switch s {
	case SourceText:
		return "PASSAGE"
	case SourceFacts:
		return "FACT"
	case SourceGraph:
		return "PATH"
	default:
		return "ITEM"
	}
}

// PolicyKind returns the single-source policy for this source.
func (s Source) PolicyKind() PolicyKind {
	return PolicyKind(s)
}

// PolicyDescriptor describes a policy for listings.
type PolicyDescriptor struct {
	ID          PolicyKind `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

// PolicyDescriptors returns descriptors for every selectable kind.
func PolicyDescriptors() []PolicyDescriptor {
	kinds := AllPolicyKinds()
	out := make([]PolicyDescriptor, len(kinds))
	for i, k := range kinds {
		out[i] = PolicyDescriptor{ID: k, Name: k.Name(), Description: k.Description()}
	}
	return out
}
