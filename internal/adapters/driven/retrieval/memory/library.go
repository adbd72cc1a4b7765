package memory

import (
	"context"
	"sync/atomic"

	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure the library views implement the interfaces.
var (
	_ driven.RetrievalBackend = libraryText{}
	_ driven.RetrievalBackend = libraryFacts{}
	_ driven.PathSearcher     = libraryGraph{}
)

// LoadFunc produces the corpus a Library serves.
type LoadFunc func() (*Corpus, error)

type backendSet struct {
	text  *TextBackend
	facts *FactsBackend
	graph *GraphBackend
}

// Library serves a corpus through the three backends and swaps all of them
// at once on Reload. Searches in flight keep the set they started with.
type Library struct {
	load    LoadFunc
	current atomic.Pointer[backendSet]
}

// NewLibrary loads the corpus once and builds the backends.
func NewLibrary(load LoadFunc) (*Library, error) {
	l := &Library{load: load}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload loads the corpus again. On failure the previous content stays live.
func (l *Library) Reload() error {
	c, err := l.load()
	if err != nil {
		return err
	}
	text, facts, graph := c.Backends()
	l.current.Store(&backendSet{text: text, facts: facts, graph: graph})
	return nil
}

// Stats returns the number of passages, facts and entities served.
func (l *Library) Stats() (passages, facts, entities int) {
	set := l.current.Load()
	return set.text.Len(), set.facts.Len(), set.graph.Len()
}

// Text returns the text backend view.
func (l *Library) Text() driven.RetrievalBackend { return libraryText{l} }

// Facts returns the facts backend view.
func (l *Library) Facts() driven.RetrievalBackend { return libraryFacts{l} }

// Graph returns the graph backend view. It also implements driven.PathSearcher.
func (l *Library) Graph() driven.RetrievalBackend { return libraryGraph{l} }

type libraryText struct{ l *Library }

func (v libraryText) Search(ctx context.Context, query string, limit int) ([]driven.BackendHit, error) {
	return v.l.current.Load().text.Search(ctx, query, limit)
}

type libraryFacts struct{ l *Library }

func (v libraryFacts) Search(ctx context.Context, query string, limit int) ([]driven.BackendHit, error) {
	return v.l.current.Load().facts.Search(ctx, query, limit)
}

type libraryGraph struct{ l *Library }

func (v libraryGraph) Search(ctx context.Context, query string, limit int) ([]driven.BackendHit, error) {
	return v.l.current.Load().graph.Search(ctx, query, limit)
}

func (v libraryGraph) SearchPaths(ctx context.Context, query string, limit, maxDepth int) ([]driven.BackendHit, error) {
	return v.l.current.Load().graph.SearchPaths(ctx, query, limit, maxDepth)
}
