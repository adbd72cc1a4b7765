package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure GraphBackend implements the interfaces.
var (
	_ driven.RetrievalBackend = (*GraphBackend)(nil)
	_ driven.PathSearcher     = (*GraphBackend)(nil)
)

const (
	// DefaultMaxDepth bounds traversal when the caller gives no depth.
	DefaultMaxDepth = 2

	// maxExpansions bounds the number of paths explored per query.
	maxExpansions = 10000
)

type edge struct {
	id       int
	to       string
	relation string
	weight   float64
	reverse  bool
}

// GraphBackend answers queries with relation paths between entities named
// in the query.
type GraphBackend struct {
	names map[string]string // lower-case id -> display name
	adj   map[string][]edge
	terms map[string]map[string]struct{}
}

// NewGraphBackend indexes relations. Edges are traversable in both directions.
func NewGraphBackend(relations []Relation) *GraphBackend {
	g := &GraphBackend{
		names: make(map[string]string),
		adj:   make(map[string][]edge),
		terms: make(map[string]map[string]struct{}),
	}
	for i, r := range relations {
		from, to := g.node(r.From), g.node(r.To)
		w := min(r.Weight, 1)
		g.adj[from] = append(g.adj[from], edge{id: i, to: to, relation: r.Relation, weight: w})
		g.adj[to] = append(g.adj[to], edge{id: i, to: from, relation: r.Relation, weight: w, reverse: true})
	}
	return g
}

func (g *GraphBackend) node(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	if _, ok := g.names[id]; !ok {
		g.names[id] = strings.TrimSpace(name)
		g.terms[id] = tokenize(name)
	}
	return id
}

// Len returns the number of entities.
func (g *GraphBackend) Len() int {
	return len(g.names)
}

// Search returns paths up to DefaultMaxDepth edges long.
func (g *GraphBackend) Search(ctx context.Context, query string, limit int) ([]driven.BackendHit, error) {
	return g.SearchPaths(ctx, query, limit, DefaultMaxDepth)
}

// SearchPaths returns at most limit paths of 1..maxDepth edges starting at an
// entity named in the query. A path scores the mean of its edge weights
// scaled by the share of its entities that the query names.
func (g *GraphBackend) SearchPaths(
	ctx context.Context, query string, limit, maxDepth int,
) ([]driven.BackendHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	q := tokenize(query)
	seeds := make(map[string]bool)
	for id, terms := range g.terms {
		if overlap(terms, q) > 0 {
			seeds[id] = true
		}
	}
	if len(seeds) == 0 {
		return []driven.BackendHit{}, nil
	}

	ordered := make([]string, 0, len(seeds))
	for id := range seeds {
		ordered = append(ordered, id)
	}
	slices.Sort(ordered)

	w := &walker{g: g, seeds: seeds, maxDepth: maxDepth, seen: make(map[string]bool)}
	for _, start := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.walk(start, []string{start}, nil)
	}
	return rank(w.hits, limit), nil
}

type walker struct {
	g        *GraphBackend
	seeds    map[string]bool
	maxDepth int
	seen     map[string]bool
	hits     []driven.BackendHit
	expanded int
}

// walk extends the simple path nodes/edges depth-first.
func (w *walker) walk(at string, nodes []string, edges []edge) {
	for _, e := range w.g.adj[at] {
		if w.expanded >= maxExpansions {
			return
		}
		if slices.Contains(nodes, e.to) {
			continue
		}
		w.expanded++
		nextNodes := append(slices.Clone(nodes), e.to)
		nextEdges := append(slices.Clone(edges), e)
		w.emit(nextNodes, nextEdges)
		if len(nextEdges) < w.maxDepth {
			w.walk(e.to, nextNodes, nextEdges)
		}
	}
}

func (w *walker) emit(nodes []string, edges []edge) {
	ids := make([]int, len(edges))
	for i, e := range edges {
		ids[i] = e.id
	}
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	key := "path:" + strings.Join(parts, "-")
	if w.seen[key] {
		return
	}
	w.seen[key] = true

	var total float64
	for _, e := range edges {
		total += e.weight
	}
	var named int
	for _, n := range nodes {
		if w.seeds[n] {
			named++
		}
	}
	score := total / float64(len(edges)) * float64(named) / float64(len(nodes))

	w.hits = append(w.hits, driven.BackendHit{
		Key:     key,
		Payload: w.render(nodes, edges),
		Score:   score,
	})
}

// render formats a path as "A -[rel]-> B <-[rel]- C".
func (w *walker) render(nodes []string, edges []edge) string {
	var sb strings.Builder
	sb.WriteString(w.g.names[nodes[0]])
	for i, e := range edges {
		if e.reverse {
			fmt.Fprintf(&sb, " <-[%s]- %s", e.relation, w.g.names[nodes[i+1]])
			continue
		}
		fmt.Fprintf(&sb, " -[%s]-> %s", e.relation, w.g.names[nodes[i+1]])
	}
	return sb.String()
}
