package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRAGConfig(t *testing.T) {
	cfg := DefaultRAGConfig()

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 5, cfg.TopKResults)
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, 0.4, cfg.FactConfidenceThreshold)
	assert.Equal(t, 3, cfg.GraphMaxDepth)
	assert.Equal(t, 0.5, cfg.FusionWeightText)
	assert.NotNil(t, cfg.Personalization)
}

func TestRAGConfig_FusionWeights(t *testing.T) {
	cfg := DefaultRAGConfig()
	cfg.FusionWeightText = 2
	cfg.FusionWeightFacts = 1
	cfg.FusionWeightGraph = 1

	w := cfg.FusionWeights()

	assert.InDelta(t, 0.5, w[SourceText], 1e-9)
	assert.InDelta(t, 0.25, w[SourceFacts], 1e-9)
	assert.InDelta(t, 0.25, w[SourceGraph], 1e-9)
}

func TestRAGConfig_FusionWeights_ZeroTotal(t *testing.T) {
	cfg := DefaultRAGConfig()
	cfg.FusionWeightText = 0
	cfg.FusionWeightFacts = 0
	cfg.FusionWeightGraph = 0

	w := cfg.FusionWeights()

	for _, s := range Sources() {
		assert.InDelta(t, 1.0/3.0, w[s], 1e-9)
	}
}

func TestNormalizeWeights_Subset(t *testing.T) {
	cfg := DefaultRAGConfig()

	w := NormalizeWeights(cfg, []Source{SourceText, SourceGraph})

	assert.Len(t, w, 2)
	assert.InDelta(t, 0.5/0.7, w[SourceText], 1e-9)
	assert.InDelta(t, 0.2/0.7, w[SourceGraph], 1e-9)
}

func TestRAGConfig_Clone(t *testing.T) {
	cfg := DefaultRAGConfig()
	cfg.Personalization["tone"] = "formal"

	clone := cfg.Clone()
	clone.Personalization["tone"] = "casual"

	assert.Equal(t, "formal", cfg.Personalization["tone"])
}

func TestRAGConfig_CandidatePool(t *testing.T) {
	cfg := DefaultRAGConfig()

	assert.Equal(t, 20, cfg.CandidatePool(SourceText, 5))
	assert.Equal(t, 20, cfg.CandidatePool(SourceFacts, 5))
	assert.Equal(t, 5, cfg.CandidatePool(SourceGraph, 5))
	assert.Equal(t, 50, cfg.CandidatePool(SourceText, 50))
}
