package policy

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

const (
	// singleSourceItems is how many items a single-source prompt includes.
	singleSourceItems = 5

	// fusedItems is how many items a hybrid prompt includes.
	fusedItems = 8

	// promptSnippetLength bounds each context line, in runes.
	promptSnippetLength = 400

	// maxGenerationTokens caps the completion length regardless of max_tokens.
	maxGenerationTokens = 800
)

const systemPrompt = "You are a retrieval assistant. Answer using only the supplied context. " +
	"If the context does not contain the answer, say that you do not know. " +
	"Cite the context items you used in square brackets, for example [PASSAGE 2]."

// buildRequest renders the generation request for a policy.
func buildRequest(
	kind domain.PolicyKind, cfg domain.RAGConfig, query string, rc *domain.RetrievalContext,
) driven.GenerateRequest {
	limit := singleSourceItems
	if kind == domain.PolicyHybrid || kind == domain.PolicySmartHybrid {
		limit = fusedItems
	}

	return driven.GenerateRequest{
		Prompt:      buildPrompt(query, rc, limit),
		System:      systemPrompt,
		Temperature: cfg.Temperature,
		MaxTokens:   min(cfg.MaxTokens, maxGenerationTokens),
	}
}

// buildPrompt lists up to limit items, each tagged with its source label
// and its rank within that source.
func buildPrompt(query string, rc *domain.RetrievalContext, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nContext:\n", query)

	ranks := make(map[domain.Source]int)
	for i, it := range rc.Items {
		if i >= limit {
			break
		}
		ranks[it.Source]++
		snippet := strings.ReplaceAll(truncate(it.Content, promptSnippetLength), "\n", " ")
		fmt.Fprintf(&sb, "- [%s %d] %s\n", it.Source.Label(), ranks[it.Source], snippet)
	}

	sb.WriteString("\nAnswer concisely and cite your sources.")
	return sb.String()
}
