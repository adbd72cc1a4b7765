package memory

import (
	"context"

	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure the document backends implement the interface.
var (
	_ driven.RetrievalBackend = (*TextBackend)(nil)
	_ driven.RetrievalBackend = (*FactsBackend)(nil)
)

type indexed struct {
	key     string
	payload string
	tokens  map[string]struct{}
	conf    float64
}

// search scores every document by query-token coverage.
func search(ctx context.Context, docs []indexed, query string, limit int) ([]driven.BackendHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := tokenize(query)
	hits := make([]driven.BackendHit, 0)
	for _, d := range docs {
		score := overlap(q, d.tokens)
		if score <= 0 {
			continue
		}
		hits = append(hits, driven.BackendHit{
			Key:        d.key,
			Payload:    d.payload,
			Score:      score,
			Confidence: d.conf,
		})
	}
	return rank(hits, limit), nil
}

// TextBackend serves passages ranked by token overlap with the query.
type TextBackend struct {
	docs []indexed
}

// NewTextBackend indexes passages.
func NewTextBackend(passages []Passage) *TextBackend {
	b := &TextBackend{docs: make([]indexed, 0, len(passages))}
	for _, p := range passages {
		b.docs = append(b.docs, indexed{key: p.Key, payload: p.Text, tokens: tokenize(p.Text)})
	}
	return b
}

// Search returns at most limit passages ordered by descending score.
func (b *TextBackend) Search(ctx context.Context, query string, limit int) ([]driven.BackendHit, error) {
	return search(ctx, b.docs, query, limit)
}

// Len returns the number of indexed passages.
func (b *TextBackend) Len() int {
	return len(b.docs)
}

// FactsBackend serves fact records. Hits carry the fact's confidence.
type FactsBackend struct {
	docs []indexed
}

// NewFactsBackend indexes facts.
func NewFactsBackend(facts []Fact) *FactsBackend {
	b := &FactsBackend{docs: make([]indexed, 0, len(facts))}
	for _, f := range facts {
		stmt := f.Statement()
		b.docs = append(b.docs, indexed{key: f.Key, payload: stmt, tokens: tokenize(stmt), conf: f.Confidence})
	}
	return b
}

// Search returns at most limit facts ordered by descending score.
func (b *FactsBackend) Search(ctx context.Context, query string, limit int) ([]driven.BackendHit, error) {
	return search(ctx, b.docs, query, limit)
}

// Len returns the number of indexed facts.
func (b *FactsBackend) Len() int {
	return len(b.docs)
}
