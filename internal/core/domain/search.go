package domain

import "time"

// SelectionResult records how the selector chose a policy.
type SelectionResult struct {
	// Kind is the policy that will run. Equals Candidate unless the
	// confidence was below the threshold, in which case it is hybrid.
	Kind PolicyKind `json:"kind"`

	// Candidate is the highest scoring single-source policy.
	Candidate PolicyKind `json:"candidate"`

	// Confidence is the candidate's share of the final distribution.
	Confidence float64 `json:"confidence"`
	Threshold  float64 `json:"threshold"`

	Scores    map[Source]float64 `json:"scores"`
	Heuristic map[Source]float64 `json:"heuristic"`
	// Learned is nil when the selector ran heuristic-only.
	Learned map[Source]float64 `json:"learned,omitempty"`

	Signals     []string `json:"signals,omitempty"`
	Explanation string   `json:"explanation"`
}

// FellBack returns true if low confidence forced the hybrid policy.
func (s *SelectionResult) FellBack() bool {
	return s != nil && s.Kind != s.Candidate
}

// SearchRequest is the input of one orchestrated search.
type SearchRequest struct {
	Query string `json:"query"`

	// Policy is the requested kind. Empty means auto.
	Policy PolicyKind `json:"policy"`

	// Limit overrides top_k_results when positive.
	Limit int `json:"limit,omitempty"`

	// Overrides are applied on top of the process defaults.
	Overrides map[string]any `json:"overrides,omitempty"`

	// SelectionThreshold overrides the selector threshold when positive.
	SelectionThreshold float64 `json:"selection_threshold,omitempty"`
}

// SearchResponse is the output of one orchestrated search.
type SearchResponse struct {
	RequestID     string            `json:"request_id"`
	Query         string            `json:"query"`
	RequestedKind PolicyKind        `json:"requested_kind"`
	Kind          PolicyKind        `json:"kind"`
	Response      string            `json:"response"`
	Generation    GenerationResult  `json:"generation"`
	Justification Justification     `json:"justification"`
	Context       *RetrievalContext `json:"context"`
	Metrics       Metrics           `json:"metrics"`

	// RecordID is nil when the history write was dropped.
	RecordID *int64 `json:"record_id,omitempty"`

	// Selection is only set when the requested kind was auto.
	Selection *SelectionResult `json:"selection,omitempty"`
}

// HistoryRecord is an append-only log entry of a completed search.
type HistoryRecord struct {
	ID            int64             `json:"id"`
	RequestID     string            `json:"request_id"`
	Query         string            `json:"query"`
	RequestedKind PolicyKind        `json:"requested_kind"`
	Kind          PolicyKind        `json:"kind"`
	Response      string            `json:"response"`
	Context       *RetrievalContext `json:"context"`
	Metrics       Metrics           `json:"metrics"`
	Selection     *SelectionResult  `json:"selection,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
