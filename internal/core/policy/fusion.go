package policy

import (
	"sort"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// minMaxNormalize rescales scores to [0,1] in place order.
// A list of one item, or of identical scores, maps to 1.0.
func minMaxNormalize(items []domain.RetrievalItem) []float64 {
	out := make([]float64, len(items))
	if len(items) == 0 {
		return out
	}
	lo, hi := items[0].Score, items[0].Score
	for _, it := range items[1:] {
		lo = min(lo, it.Score)
		hi = max(hi, it.Score)
	}
	for i, it := range items {
		if hi == lo {
			out[i] = 1.0
			continue
		}
		out[i] = (it.Score - lo) / (hi - lo)
	}
	return out
}

// fuse merges per-source rankings into one list.
//
// Items are grouped by key. Each source's scores are min-max normalised and
// weighted; weights are renormalised over the sources that returned at least
// one item. The result is sorted by fused score, ties broken by source
// priority, and truncated to limit.
func fuse(cfg domain.RAGConfig, lists map[domain.Source][]domain.RetrievalItem, limit int) []domain.RetrievalItem {
	contributing := make([]domain.Source, 0, len(lists))
	for _, s := range domain.Sources() {
		if len(lists[s]) > 0 {
			contributing = append(contributing, s)
		}
	}
	if len(contributing) == 0 {
		return []domain.RetrievalItem{}
	}
	weights := domain.NormalizeWeights(cfg, contributing)

	type entry struct {
		item  domain.RetrievalItem
		best  float64
		order int
	}
	byKey := make(map[string]*entry)
	order := 0

	for _, s := range contributing {
		items := lists[s]
		norm := minMaxNormalize(items)
		for i, it := range items {
			share := weights[s] * norm[i]
			e, ok := byKey[it.Key]
			if !ok {
				e = &entry{
					item: domain.RetrievalItem{
						Key:           it.Key,
						Content:       it.Content,
						Source:        s,
						Contributions: make(map[domain.Source]float64),
					},
					best:  -1,
					order: order,
				}
				order++
				byKey[it.Key] = e
			}
			// A source listing the same key twice keeps its better entry.
			if prev, seen := e.item.Contributions[s]; seen && prev >= share {
				continue
			}
			e.item.Score += share - e.item.Contributions[s]
			e.item.Contributions[s] = share
			if share > e.best {
				e.best = share
				e.item.Source = s
				e.item.Content = it.Content
			}
		}
	}

	entries := make([]*entry, 0, len(byKey))
	for _, e := range byKey {
		e.item.Score = clamp01(e.item.Score)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.item.Score != b.item.Score {
			return a.item.Score > b.item.Score
		}
		if pa, pb := a.item.Source.Priority(), b.item.Source.Priority(); pa != pb {
			return pa < pb
		}
		return a.order < b.order
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.RetrievalItem, len(entries))
	for i, e := range entries {
		out[i] = e.item
	}
	return out
}
