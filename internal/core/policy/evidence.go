package policy

import (
	"fmt"
	"maps"
	"strings"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

const (
	// snippetLength bounds evidence snippets, in runes.
	snippetLength = 200

	// costPerToken is the flat cost estimate per token.
	costPerToken = 0.00002
)

func justify(kind domain.PolicyKind, rc *domain.RetrievalContext) domain.Justification {
	j := domain.Justification{Policy: kind, Evidence: []domain.Evidence{}}
	if rc.IsEmpty() {
		j.Summary = "No evidence was retrieved."
		return j
	}

	counts := make(map[domain.Source]int)
	for _, it := range rc.Items {
		counts[it.Source]++
		j.Evidence = append(j.Evidence, domain.Evidence{
			Key:           it.Key,
			Source:        it.Source,
			Score:         it.Score,
			Contributions: maps.Clone(it.Contributions),
			Snippet:       truncate(it.Content, snippetLength),
		})
	}

	parts := make([]string, 0, len(counts))
	for _, s := range domain.Sources() {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	j.Summary = fmt.Sprintf("Answer grounded in %d items (%s).", len(rc.Items), strings.Join(parts, ", "))
	return j
}

func measure(gen *domain.GenerationResult, rc *domain.RetrievalContext) domain.Metrics {
	var m domain.Metrics
	if rc != nil {
		m.SearchTime = rc.Timing.Search
		m.GenerationTime = rc.Timing.Generation
		m.ResultCount = len(rc.Items)
	}
	m.TotalTime = m.SearchTime + m.GenerationTime

	if gen != nil {
		if gen.Usage.Total != nil {
			m.TokensUsed = *gen.Usage.Total
		} else {
			m.TokensUsed = len(strings.Fields(gen.Text))
			m.TokensEstimated = true
		}
	}
	m.CostEstimate = float64(m.TokensUsed) * costPerToken

	if avg, ok := rc.AverageScore(); ok {
		relevance := clamp01(avg)
		faithfulness := min(1.0, relevance)
		m.ContextRelevance = &relevance
		m.Faithfulness = &faithfulness
	}
	return m
}

// truncate shortens s to n runes, appending "..." when cut.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
