package services

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
	"github.com/custodia-labs/polyrag/internal/core/ports/driving"
	"github.com/custodia-labs/polyrag/internal/logger"
)

// Ensure SelectorService implements the interface.
var _ driving.PolicySelector = (*SelectorService)(nil)

const (
	// DefaultSelectionThreshold is the confidence below which hybrid is chosen.
	DefaultSelectionThreshold = 0.6

	// DefaultHeuristicWeight is the share of the heuristic scores in a blend.
	DefaultHeuristicWeight = 0.7

	keywordWeight   = 0.7
	structureWeight = 0.3
	closeMargin     = 0.2
)

var keywords = map[domain.Source][]string{
	domain.SourceText: {
		"describe", "explain", "overview", "summarize", "summary", "discuss",
		"how does", "how do", "how it works", "mechanism", "process", "procedure",
		"method", "technique", "approach", "context", "background", "history",
		"evolution", "origin", "why", "purpose", "reason", "motivation",
		"role", "function", "meaning", "significance",
	},
	domain.SourceFacts: {
		"what is", "who is", "who was", "where", "when", "how many", "how much",
		"definition", "date", "year", "number", "value", "percent", "percentage",
		"statistic", "fact", "is it true", "true or false", "which",
		"name", "title", "author", "founder", "ceo", "director", "capital",
		"area", "population", "inhabitants", "confirm", "verify",
	},
	domain.SourceGraph: {
		"relationship", "relation", "related", "related to", "connection",
		"connected", "connected to", "connect", "link", "linked", "dependency",
		"depends on", "influence", "impact", "effect", "cause", "consequence",
		"between", "and", "together with", "in the context of",
		"structure", "organization", "hierarchy", "classification", "category",
		"compare", "comparison", "difference", "similarity", "contrast",
		"path", "route", "bridge", "how does it affect", "how are",
	},
}

// stopwords never count towards a partial phrase match.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "to": {}, "in": {}, "on": {}, "for": {},
	"is": {}, "are": {}, "was": {}, "and": {}, "or": {}, "with": {}, "it": {},
	"how": {}, "what": {}, "who": {}, "do": {}, "does": {},
}

type structureRule struct {
	source domain.Source
	re     *regexp.Regexp
	weight float64
	signal string
}

var structureRules = []structureRule{
	{domain.SourceFacts, regexp.MustCompile(`^(is|are|was|were|does|do|did|can|could|has|have|will)\b`), 1.0, "yes/no question"},
	{domain.SourceFacts, regexp.MustCompile(`\b(how many|how much|how long|how high|how old)\b`), 1.0, "quantity question"},
	{domain.SourceFacts, regexp.MustCompile(`\d`), 0.5, "contains numbers"},
	{domain.SourceGraph, regexp.MustCompile(`\bbetween\b.*\band\b`), 1.5, "between ... and ..."},
	{domain.SourceGraph, regexp.MustCompile(`\b(compare|comparison|difference|similarity)\b`), 1.0, "comparison"},
	{domain.SourceText, regexp.MustCompile(`\b(describe|explain|how does|why)\b`), 1.0, "descriptive question"},
}

// SelectorService recommends a policy for a query from keyword and
// question-structure heuristics, optionally blended with a learned model.
type SelectorService struct {
	learned driven.LearnedScorer
	alpha   float64
	cache   *lru.Cache[string, map[domain.Source]float64]
}

// NewSelectorService creates a selector.
// The learned scorer is optional (can be nil); alpha is the heuristic share
// of the blend and cacheSize bounds cached learned predictions.
func NewSelectorService(learned driven.LearnedScorer, alpha float64, cacheSize int) (*SelectorService, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("selector alpha %.2f out of range [0,1]", alpha)
	}
	s := &SelectorService{learned: learned, alpha: alpha}
	if learned != nil && cacheSize > 0 {
		cache, err := lru.New[string, map[domain.Source]float64](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("selector cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Scores returns the final per-source distribution for query.
func (s *SelectorService) Scores(ctx context.Context, query string) (map[domain.Source]float64, error) {
	final, _, _, _ := s.score(ctx, query)
	return final, nil
}

// Select recommends a policy. When the best source scores below threshold
// the hybrid policy is recommended instead.
func (s *SelectorService) Select(ctx context.Context, query string, threshold float64) (*domain.SelectionResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("select policy: %w: empty query", domain.ErrInvalidInput)
	}
	if threshold <= 0 {
		threshold = DefaultSelectionThreshold
	}

	final, heuristic, learned, signals := s.score(ctx, query)

	best := domain.Sources()[0]
	for _, src := range domain.Sources()[1:] {
		if final[src] > final[best] {
			best = src
		}
	}

	res := &domain.SelectionResult{
		Kind:       best.PolicyKind(),
		Candidate:  best.PolicyKind(),
		Confidence: final[best],
		Threshold:  threshold,
		Scores:     final,
		Heuristic:  heuristic,
		Learned:    learned,
		Signals:    signals,
	}
	if res.Confidence < threshold {
		res.Kind = domain.PolicyHybrid
	}
	res.Explanation = explain(res)

	logger.Debug("selector: candidate=%s confidence=%.3f threshold=%.2f -> %s",
		res.Candidate, res.Confidence, threshold, res.Kind)
	return res, nil
}

// score computes the final distribution, the normalized heuristic
// distribution, the learned distribution (nil when unavailable) and the
// heuristic signals that fired.
func (s *SelectorService) score(
	ctx context.Context, query string,
) (map[domain.Source]float64, map[domain.Source]float64, map[domain.Source]float64, []string) {
	raw, signals := heuristicScores(query)
	heuristic := toDistribution(maxNormalize(raw))

	learned := s.predict(ctx, query)
	if learned == nil {
		return heuristic, heuristic, nil, signals
	}

	blended := make(map[domain.Source]float64, len(heuristic))
	for _, src := range domain.Sources() {
		blended[src] = s.alpha*heuristic[src] + (1-s.alpha)*learned[src]
	}
	return toDistribution(blended), heuristic, learned, signals
}

// predict returns the learned distribution or nil when none is available.
func (s *SelectorService) predict(ctx context.Context, query string) map[domain.Source]float64 {
	if s.learned == nil {
		return nil
	}
	key := normalizeQuery(query)
	if s.cache != nil {
		if dist, ok := s.cache.Get(key); ok {
			return dist
		}
	}

	dist, err := s.learned.PredictDistribution(ctx, query)
	if err != nil {
		logger.Warn("selector: learned scorer failed, using heuristics only: %v", err)
		return nil
	}

	out := make(map[domain.Source]float64, len(domain.Sources()))
	for _, src := range domain.Sources() {
		if v := dist[src]; v > 0 {
			out[src] = v
		} else {
			out[src] = 0
		}
	}
	out = toDistribution(out)
	if s.cache != nil {
		s.cache.Add(key, out)
	}
	return out
}

// heuristicScores returns raw per-source scores and the signals behind them.
func heuristicScores(query string) (map[domain.Source]float64, []string) {
	norm := normalizeQuery(query)
	words := strings.Fields(norm)
	padded := " " + norm + " "

	scores := make(map[domain.Source]float64, len(domain.Sources()))
	var signals []string

	for _, src := range domain.Sources() {
		var kw float64
		for _, phrase := range keywords[src] {
			if strings.Contains(padded, " "+phrase+" ") {
				kw += 2
				signals = append(signals, fmt.Sprintf("%s keyword %q", src, phrase))
				continue
			}
			kw += partialMatch(phrase, words)
		}
		scores[src] = keywordWeight * kw
	}

	structure := make(map[domain.Source]float64, len(domain.Sources()))
	for _, rule := range structureRules {
		if rule.re.MatchString(norm) {
			structure[rule.source] += rule.weight
			signals = append(signals, fmt.Sprintf("%s structure: %s", rule.source, rule.signal))
		}
	}
	if len(words) > 10 {
		structure[domain.SourceText] += 0.5
		signals = append(signals, "text structure: long question")
	}
	for src, v := range structure {
		scores[src] += structureWeight * v
	}
	return scores, signals
}

// partialMatch scores the share of a phrase's content words found in words.
func partialMatch(phrase string, words []string) float64 {
	var total, matches int
	for _, w := range strings.Fields(phrase) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		total++
		if slices.Contains(words, w) {
			matches++
		}
	}
	if total == 0 || matches == 0 {
		return 0
	}
	return float64(matches) / float64(total)
}

// normalizeQuery lower-cases query and collapses punctuation to spaces.
func normalizeQuery(query string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, query)
	return strings.Join(strings.Fields(mapped), " ")
}

// maxNormalize divides scores by the largest so the maximum becomes 1 and
// the relative gaps between sources survive. All-zero scores stay zero.
func maxNormalize(scores map[domain.Source]float64) map[domain.Source]float64 {
	var hi float64
	for _, src := range domain.Sources() {
		hi = max(hi, scores[src])
	}
	out := make(map[domain.Source]float64, len(domain.Sources()))
	for _, src := range domain.Sources() {
		if hi <= 0 {
			out[src] = 0
			continue
		}
		out[src] = scores[src] / hi
	}
	return out
}

// toDistribution rescales scores to sum to 1, or uniform when they sum to 0.
func toDistribution(scores map[domain.Source]float64) map[domain.Source]float64 {
	var total float64
	for _, src := range domain.Sources() {
		total += scores[src]
	}
	out := make(map[domain.Source]float64, len(domain.Sources()))
	for _, src := range domain.Sources() {
		if total <= 0 {
			out[src] = 1.0 / float64(len(domain.Sources()))
			continue
		}
		out[src] = scores[src] / total
	}
	return out
}

func confidenceBand(c float64) string {
	switch {
	case c >= 0.8:
		return "very high"
	case c >= 0.6:
		return "high"
	case c >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

// explain summarizes a selection for display.
func explain(res *domain.SelectionResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Selected %s with %s confidence (%.1f%%).",
		res.Kind.Name(), confidenceBand(res.Confidence), res.Confidence*100)

	if res.FellBack() {
		fmt.Fprintf(&sb, " Best single source was %s, below the %.0f%% threshold.",
			res.Candidate.Name(), res.Threshold*100)
	}

	ranked := slices.Clone(domain.Sources())
	sort.SliceStable(ranked, func(i, j int) bool {
		return res.Scores[ranked[i]] > res.Scores[ranked[j]]
	})
	if second := ranked[1]; res.Confidence-res.Scores[second] < closeMargin {
		fmt.Fprintf(&sb, " %s was a close alternative (%.1f%%).",
			second.PolicyKind().Name(), res.Scores[second]*100)
	}

	if len(res.Signals) > 0 {
		shown := res.Signals
		if len(shown) > 3 {
			shown = shown[:3]
		}
		fmt.Fprintf(&sb, " Signals: %s.", strings.Join(shown, "; "))
	} else {
		sb.WriteString(" No heuristic signals matched.")
	}
	if res.Learned != nil {
		sb.WriteString(" Learned router blended in.")
	}
	return sb.String()
}
