package domain

import "time"

// RetrievalItem is one ranked piece of evidence.
type RetrievalItem struct {
	// Key identifies the underlying content across sources (used for fusion grouping).
	Key string `json:"key"`

	// Content is the text shown to the language model.
	Content string `json:"content"`

	// Score is the relevance in [0,1] after the policy's own normalisation.
	Score float64 `json:"score"`

	// Source is the backend the item came from. Fused items keep the source
	// of their strongest contribution.
	Source Source `json:"source"`

	// Contributions holds the weighted per-source share of a fused score.
	// Nil for single-source policies.
	Contributions map[Source]float64 `json:"contributions,omitempty"`
}

// Timing records the phase durations of one request.
type Timing struct {
	Search     time.Duration `json:"search"`
	Generation time.Duration `json:"generation"`
}

// RetrievalContext is the ordered result of a retrieval plus side data.
type RetrievalContext struct {
	Items []RetrievalItem `json:"items"`

	// Metadata carries the applied configuration snapshot, sub-policy
	// status and any policy-specific notes.
	Metadata map[string]any `json:"metadata,omitempty"`

	Timing Timing `json:"timing"`
}

// NewRetrievalContext creates an empty context with initialised metadata.
func NewRetrievalContext() *RetrievalContext {
	return &RetrievalContext{
		Items:    []RetrievalItem{},
		Metadata: map[string]any{},
	}
}

// IsEmpty returns true if no items were retrieved.
func (rc *RetrievalContext) IsEmpty() bool {
	return rc == nil || len(rc.Items) == 0
}

// AverageScore returns the mean item score, or false when empty.
func (rc *RetrievalContext) AverageScore() (float64, bool) {
	if rc.IsEmpty() {
		return 0, false
	}
	var sum float64
	for _, it := range rc.Items {
		sum += it.Score
	}
	return sum / float64(len(rc.Items)), true
}

// ContentLength returns the total content length in runes.
func (rc *RetrievalContext) ContentLength() int {
	if rc == nil {
		return 0
	}
	n := 0
	for _, it := range rc.Items {
		n += len([]rune(it.Content))
	}
	return n
}
