package domain

import (
	"maps"
	"time"
)

// RAGConfig holds the tunable parameters of one retrieval request.
// Values are built by the config resolver and treated as immutable afterwards.
type RAGConfig struct {
	ChunkSize               int     `koanf:"chunk_size" json:"chunk_size" validate:"gte=1"`
	ChunkOverlap            int     `koanf:"chunk_overlap" json:"chunk_overlap" validate:"gte=0"`
	MaxTokens               int     `koanf:"max_tokens" json:"max_tokens" validate:"gte=1"`
	SimilarityThreshold     float64 `koanf:"similarity_threshold" json:"similarity_threshold" validate:"gte=0,lte=1"`
	TopKResults             int     `koanf:"top_k_results" json:"top_k_results" validate:"gte=1"`
	MaxSearchResults        int     `koanf:"max_search_results" json:"max_search_results" validate:"gte=1"`
	SearchTimeout           float64 `koanf:"search_timeout" json:"search_timeout" validate:"gt=0"`
	Temperature             float64 `koanf:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxResponseLength       int     `koanf:"max_response_length" json:"max_response_length" validate:"gte=1"`
	CacheTTL                int     `koanf:"cache_ttl" json:"cache_ttl" validate:"gte=0"`
	BatchSize               int     `koanf:"batch_size" json:"batch_size" validate:"gte=1"`
	EmbeddingModel          string  `koanf:"embedding_model" json:"embedding_model"`
	VectorDBPath            string  `koanf:"vector_db_path" json:"vector_db_path"`
	FactConfidenceThreshold float64 `koanf:"fact_confidence_threshold" json:"fact_confidence_threshold" validate:"gte=0,lte=1"`
	FactRerankTopN          int     `koanf:"fact_rerank_top_n" json:"fact_rerank_top_n" validate:"gte=1"`
	GraphMaxDepth           int     `koanf:"graph_max_depth" json:"graph_max_depth" validate:"gte=1"`
	GraphMaxPaths           int     `koanf:"graph_max_paths" json:"graph_max_paths" validate:"gte=1"`
	TextRerankTopN          int     `koanf:"text_rerank_top_n" json:"text_rerank_top_n" validate:"gte=1"`
	FusionWeightText        float64 `koanf:"fusion_w_text" json:"fusion_w_text" validate:"gte=0"`
	FusionWeightFacts       float64 `koanf:"fusion_w_facts" json:"fusion_w_facts" validate:"gte=0"`
	FusionWeightGraph       float64 `koanf:"fusion_w_graph" json:"fusion_w_graph" validate:"gte=0"`
	SmartSkipThreshold      float64 `koanf:"smart_skip_threshold" json:"smart_skip_threshold" validate:"gte=0,lte=1"`

	// Personalization collects override keys that match no known field.
	Personalization map[string]any `koanf:"-" json:"personalization,omitempty"`
}

// DefaultRAGConfig returns the built-in defaults.
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		ChunkSize:               1000,
		ChunkOverlap:            200,
		MaxTokens:               4000,
		SimilarityThreshold:     0.7,
		TopKResults:             5,
		MaxSearchResults:        10,
		SearchTimeout:           30,
		Temperature:             0.7,
		MaxResponseLength:       2000,
		CacheTTL:                3600,
		BatchSize:               10,
		EmbeddingModel:          "sentence-transformers/all-MiniLM-L6-v2",
		VectorDBPath:            "./vector_db",
		FactConfidenceThreshold: 0.4,
		FactRerankTopN:          20,
		GraphMaxDepth:           3,
		GraphMaxPaths:           5,
		TextRerankTopN:          20,
		FusionWeightText:        0.5,
		FusionWeightFacts:       0.3,
		FusionWeightGraph:       0.2,
		SmartSkipThreshold:      0.15,
		Personalization:         map[string]any{},
	}
}

// Clone returns a copy that shares no maps with c.
func (c RAGConfig) Clone() RAGConfig {
	out := c
	out.Personalization = maps.Clone(c.Personalization)
	if out.Personalization == nil {
		out.Personalization = map[string]any{}
	}
	return out
}

// Timeout returns SearchTimeout as a duration.
func (c RAGConfig) Timeout() time.Duration {
	return time.Duration(c.SearchTimeout * float64(time.Second))
}

// CacheDuration returns CacheTTL as a duration.
func (c RAGConfig) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// FusionWeight returns the raw configured weight for a source.
func (c RAGConfig) FusionWeight(s Source) float64 {
	switch s {
	case SourceText:
		return c.FusionWeightText
	case SourceFacts:
		return c.FusionWeightFacts
	case SourceGraph:
		return c.FusionWeightGraph
	default:
		return 0
	}
}

// FusionWeights returns the fusion weights renormalized to sum to 1.
// A non-positive total yields equal weights.
func (c RAGConfig) FusionWeights() map[Source]float64 {
	return NormalizeWeights(c, Sources())
}

// NormalizeWeights renormalizes the weights of the given sources to sum to 1.
func NormalizeWeights(c RAGConfig, sources []Source) map[Source]float64 {
	out := make(map[Source]float64, len(sources))
	var total float64
	for _, s := range sources {
		w := c.FusionWeight(s)
		if w < 0 {
			w = 0
		}
		out[s] = w
		total += w
	}
	if total <= 0 {
		for _, s := range sources {
			out[s] = 1 / float64(len(sources))
		}
		return out
	}
	for s, w := range out {
		out[s] = w / total
	}
	return out
}

// CandidatePool returns how many items a single-source retrieval should
// pull before truncating to limit.
func (c RAGConfig) CandidatePool(s Source, limit int) int {
	var n int
	switch s {
	case SourceText:
		n = c.TextRerankTopN
	case SourceFacts:
		n = c.FactRerankTopN
	case SourceGraph:
		n = c.GraphMaxPaths
	}
	return max(n, limit)
}
