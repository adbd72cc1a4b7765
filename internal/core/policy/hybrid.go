package policy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/logger"
)

// Ensure the fused policies implement Policy.
var (
	_ Policy = (*HybridPolicy)(nil)
	_ Policy = (*SmartHybridPolicy)(nil)
)

// Sub-policy outcomes recorded in context metadata.
const (
	subStatusOK      = "ok"
	subStatusFailed  = "failed"
	subStatusTimeout = "timeout"
	subStatusSkipped = "skipped"
)

// subResult is one sub-policy outcome delivered to the collector.
type subResult struct {
	source  domain.Source
	items   []domain.RetrievalItem
	err     error
	elapsed time.Duration
}

// HybridPolicy retrieves from every source concurrently and fuses the results.
type HybridPolicy struct {
	base
	subs map[domain.Source]Policy
}

// NewHybridPolicy creates a hybrid policy over the given sub-policies.
func NewHybridPolicy(cfg domain.RAGConfig, subs map[domain.Source]Policy, gen Generator) *HybridPolicy {
	return &HybridPolicy{
		base: base{kind: domain.PolicyHybrid, cfg: cfg, gen: gen},
		subs: subs,
	}
}

// Retrieve fans out to all sub-policies under one deadline and fuses what completed.
func (p *HybridPolicy) Retrieve(ctx context.Context, query string, limit int) (*domain.RetrievalContext, error) {
	return retrieveFused(ctx, p.cfg, p.subs, domain.Sources(), query, limit, nil)
}

// SmartHybridPolicy fuses only the sources the category scorer rates as useful.
// The best-rated source always runs.
type SmartHybridPolicy struct {
	base
	subs   map[domain.Source]Policy
	scorer CategoryScorer
}

// NewSmartHybridPolicy creates a smart hybrid policy. A nil scorer makes it
// behave like the hybrid policy.
func NewSmartHybridPolicy(
	cfg domain.RAGConfig, subs map[domain.Source]Policy, scorer CategoryScorer, gen Generator,
) *SmartHybridPolicy {
	return &SmartHybridPolicy{
		base:   base{kind: domain.PolicySmartHybrid, cfg: cfg, gen: gen},
		subs:   subs,
		scorer: scorer,
	}
}

// Retrieve skips low-value sources, fuses the rest and records a quality estimate.
func (p *SmartHybridPolicy) Retrieve(ctx context.Context, query string, limit int) (*domain.RetrievalContext, error) {
	run, scores := p.plan(ctx, query)

	skipped := make([]string, 0)
	for _, s := range domain.Sources() {
		if !slices.Contains(run, s) {
			skipped = append(skipped, string(s))
		}
	}

	rc, err := retrieveFused(ctx, p.cfg, p.subs, run, query, limit, skipped)
	if err != nil {
		return nil, err
	}
	if scores != nil {
		rc.Metadata["category_scores"] = scores
	}
	rc.Metadata["skipped_sources"] = skipped
	rc.Metadata["quality"] = qualityEstimate(rc)
	return rc, nil
}

// plan decides which sources to query.
func (p *SmartHybridPolicy) plan(ctx context.Context, query string) ([]domain.Source, map[domain.Source]float64) {
	all := domain.Sources()
	if p.scorer == nil {
		return all, nil
	}
	scores, err := p.scorer.Scores(ctx, query)
	if err != nil || len(scores) == 0 {
		logger.Warn("smart hybrid: category scores unavailable (%v), querying all sources", err)
		return all, nil
	}

	top := all[0]
	for _, s := range all[1:] {
		if scores[s] > scores[top] {
			top = s
		}
	}

	run := make([]domain.Source, 0, len(all))
	for _, s := range all {
		if s == top || scores[s] >= p.cfg.SmartSkipThreshold {
			run = append(run, s)
		} else {
			logger.Debug("smart hybrid: skipping %s (score %.3f < %.3f)", s, scores[s], p.cfg.SmartSkipThreshold)
		}
	}
	return run, scores
}

// qualityEstimate blends result count, mean score and context length into [0,1].
func qualityEstimate(rc *domain.RetrievalContext) float64 {
	if rc.IsEmpty() {
		return 0
	}
	avg, _ := rc.AverageScore()
	count := min(float64(len(rc.Items))/5.0, 1.0)
	length := min(float64(rc.ContentLength())/2000.0, 1.0)
	return clamp01((count + avg + length) / 3.0)
}

// retrieveFused runs the sub-policies for sources concurrently, waits until
// all finished or the search timeout expired, and fuses the completed lists.
// Results received once the deadline has passed are discarded, and a
// sub-policy that gave up on its deadline counts as timed out.
func retrieveFused(
	ctx context.Context,
	cfg domain.RAGConfig,
	subs map[domain.Source]Policy,
	sources []domain.Source,
	query string,
	limit int,
	skipped []string,
) (*domain.RetrievalContext, error) {
	if limit <= 0 {
		limit = cfg.TopKResults
	}

	dctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	status := make(map[string]string, len(domain.Sources()))
	for _, s := range skipped {
		status[s] = subStatusSkipped
	}

	results := make(chan subResult, len(sources))
	var g errgroup.Group
	for _, s := range sources {
		sub, ok := subs[s]
		if !ok || sub == nil {
			status[string(s)] = subStatusFailed
			continue
		}
		subLimit := cfg.CandidatePool(s, limit)
		g.Go(func() error {
			start := time.Now()
			rc, err := sub.Retrieve(dctx, query, subLimit)
			r := subResult{source: s, err: err, elapsed: time.Since(start)}
			if err == nil && rc != nil {
				r.items = rc.Items
			}
			results <- r
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	lists := make(map[domain.Source][]domain.RetrievalItem)
	timings := make(map[string]string)
	completed := 0
collect:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break collect
			}
			if dctx.Err() != nil {
				logger.Warn("hybrid: deadline reached with %d of %d sub-policies complete", completed, len(sources))
				break collect
			}
			timings[string(r.source)] = r.elapsed.String()
			if r.err != nil {
				if errors.Is(r.err, domain.ErrRetrievalTimeout) || errors.Is(r.err, context.DeadlineExceeded) {
					status[string(r.source)] = subStatusTimeout
					continue
				}
				logger.Warn("hybrid: %s sub-policy failed: %v", r.source, r.err)
				status[string(r.source)] = subStatusFailed
				continue
			}
			status[string(r.source)] = subStatusOK
			lists[r.source] = r.items
			completed++
		case <-dctx.Done():
			logger.Warn("hybrid: deadline reached with %d of %d sub-policies complete", completed, len(sources))
			break collect
		}
	}
	for _, s := range sources {
		if _, done := status[string(s)]; !done {
			status[string(s)] = subStatusTimeout
		}
	}

	if completed == 0 {
		return nil, fmt.Errorf("hybrid retrieval: no sub-policy completed: %w", domain.ErrRetrievalTimeout)
	}

	rc := domain.NewRetrievalContext()
	rc.Items = fuse(cfg, lists, limit)
	rc.Metadata["sub_policies"] = status
	rc.Metadata["sub_policy_time"] = timings
	rc.Metadata["applied_settings"] = cfg.Clone()
	if avg, ok := rc.AverageScore(); ok {
		rc.Metadata["avg_fused_score"] = avg
	}
	return rc, nil
}
