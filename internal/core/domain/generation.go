package domain

import "time"

// TokenUsage reports provider token counts. Nil fields are unknown.
type TokenUsage struct {
	Prompt     *int `json:"prompt,omitempty"`
	Completion *int `json:"completion,omitempty"`
	Total      *int `json:"total,omitempty"`
}

// NewTokenUsage builds usage from optional counts. Total is only set when
// both counts are known.
func NewTokenUsage(prompt, completion *int) TokenUsage {
	u := TokenUsage{Prompt: prompt, Completion: completion}
	if prompt != nil && completion != nil {
		total := *prompt + *completion
		u.Total = &total
	}
	return u
}

// GenerationResult is the normalised output of a language model call.
type GenerationResult struct {
	Text     string        `json:"text"`
	Elapsed  time.Duration `json:"elapsed"`
	Usage    TokenUsage    `json:"usage"`
	Model    string        `json:"model,omitempty"`
	Provider string        `json:"provider,omitempty"`
}

// NoContextModel marks a response produced without calling a model
// because retrieval returned nothing.
const NoContextModel = "no-context"

// NoContextAnswer is the response text used when retrieval is empty.
const NoContextAnswer = "No relevant information was found for this query."

// Evidence is one justification entry.
type Evidence struct {
	Key           string             `json:"key"`
	Source        Source             `json:"source"`
	Score         float64            `json:"score"`
	Contributions map[Source]float64 `json:"contributions,omitempty"`
	Snippet       string             `json:"snippet"`
}

// Justification explains a response in terms of the retrieved evidence.
type Justification struct {
	Policy   PolicyKind `json:"policy"`
	Summary  string     `json:"summary"`
	Evidence []Evidence `json:"evidence"`
}

// Metrics describes the cost and quality of one request.
// Optional fields are nil when they could not be computed.
type Metrics struct {
	SearchTime       time.Duration `json:"search_time"`
	GenerationTime   time.Duration `json:"generation_time"`
	TotalTime        time.Duration `json:"total_time"`
	TokensUsed       int           `json:"tokens_used"`
	TokensEstimated  bool          `json:"tokens_estimated"`
	CostEstimate     float64       `json:"cost_estimate"`
	ContextRelevance *float64      `json:"context_relevance,omitempty"`
	Faithfulness     *float64      `json:"faithfulness,omitempty"`
	ResultCount      int           `json:"result_count"`
}
