// Package linear implements the learned policy scorer as a bag-of-words
// linear model with a softmax over the three sources.
//
// The model artifact is JSON:
//
//	{
//	  "version": "2026-01",
//	  "bias": {"text": 0.1, "facts": 0.0, "graph": -0.1},
//	  "weights": {
//	    "how many": {"facts": 1.4},
//	    "connected": {"graph": 1.1}
//	  }
//	}
//
// Weight keys are lower-case unigrams or bigrams.
package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// Ensure Scorer implements the interface.
var _ driven.LearnedScorer = (*Scorer)(nil)

// Model is the serialised form of a trained scorer.
type Model struct {
	Version string                               `json:"version"`
	Bias    map[domain.Source]float64            `json:"bias"`
	Weights map[string]map[domain.Source]float64 `json:"weights"`
}

// Scorer predicts a source distribution from query n-grams.
// It is read-only after construction and safe for concurrent use.
type Scorer struct {
	model Model
}

// New creates a scorer from a decoded model.
func New(m Model) (*Scorer, error) {
	for src := range m.Bias {
		if !slices.Contains(domain.Sources(), src) {
			return nil, fmt.Errorf("model bias: unknown source %q", src)
		}
	}
	for term, w := range m.Weights {
		for src := range w {
			if !slices.Contains(domain.Sources(), src) {
				return nil, fmt.Errorf("model weight %q: unknown source %q", term, src)
			}
		}
	}
	return &Scorer{model: m}, nil
}

// Load reads a model artifact from path.
func Load(path string) (*Scorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", path, err)
	}
	return New(m)
}

// Version returns the model version label.
func (s *Scorer) Version() string {
	return s.model.Version
}

// PredictDistribution returns softmax probabilities per source.
func (s *Scorer) PredictDistribution(ctx context.Context, query string) (map[domain.Source]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logits := make(map[domain.Source]float64, len(domain.Sources()))
	for _, src := range domain.Sources() {
		logits[src] = s.model.Bias[src]
	}
	for _, term := range ngrams(query) {
		for src, w := range s.model.Weights[term] {
			logits[src] += w
		}
	}
	return softmax(logits), nil
}

// ngrams returns the unigrams and bigrams of the lower-cased query.
func ngrams(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, 2*len(words))
	out = append(out, words...)
	for i := 0; i+1 < len(words); i++ {
		out = append(out, words[i]+" "+words[i+1])
	}
	return out
}

func softmax(logits map[domain.Source]float64) map[domain.Source]float64 {
	hi := math.Inf(-1)
	for _, v := range logits {
		hi = max(hi, v)
	}
	var sum float64
	out := make(map[domain.Source]float64, len(logits))
	for src, v := range logits {
		e := math.Exp(v - hi)
		out[src] = e
		sum += e
	}
	for src := range out {
		out[src] /= sum
	}
	return out
}
