package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/polyrag/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query     string         `json:"query" jsonschema:"the question to answer"`
	Policy    string         `json:"policy,omitempty" jsonschema:"retrieval policy: auto, text, facts, graph, hybrid or smart_hybrid (default auto)"`
	Limit     int            `json:"limit,omitempty" jsonschema:"maximum number of context items (default top_k_results)"`
	Overrides map[string]any `json:"overrides,omitempty" jsonschema:"configuration overrides; unknown keys become personalization"`
	Threshold float64        `json:"threshold,omitempty" jsonschema:"auto-selection confidence threshold (default 0.6)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	RequestID       string           `json:"request_id"`
	Policy          string           `json:"policy"`
	RequestedPolicy string           `json:"requested_policy"`
	Response        string           `json:"response"`
	Summary         string           `json:"summary"`
	Items           []ItemOutput     `json:"items"`
	Metrics         MetricsOutput    `json:"metrics"`
	Selection       *SelectionOutput `json:"selection,omitempty"`
	RecordID        *int64           `json:"record_id,omitempty"`
}

// ItemOutput is one retrieved context item.
type ItemOutput struct {
	Key     string  `json:"key"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

// MetricsOutput reports request cost and timing.
type MetricsOutput struct {
	SearchMS        int64   `json:"search_ms"`
	GenerationMS    int64   `json:"generation_ms"`
	TotalMS         int64   `json:"total_ms"`
	TokensUsed      int     `json:"tokens_used"`
	TokensEstimated bool    `json:"tokens_estimated"`
	CostEstimate    float64 `json:"cost_estimate"`
	ResultCount     int     `json:"result_count"`
}

// SelectionOutput explains an automatic policy choice.
type SelectionOutput struct {
	Candidate   string             `json:"candidate"`
	Confidence  float64            `json:"confidence"`
	Scores      map[string]float64 `json:"scores"`
	Explanation string             `json:"explanation"`
}

// HistoryListInput is the input schema for the history_list tool.
type HistoryListInput struct {
	Offset int `json:"offset,omitempty" jsonschema:"number of records to skip"`
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of records (default 20)"`
}

// HistoryListOutput is the output schema for the history_list tool.
type HistoryListOutput struct {
	Records []HistorySummary `json:"records"`
	Count   int              `json:"count"`
}

// HistorySummary is one line of the search history.
type HistorySummary struct {
	ID        int64  `json:"id"`
	Query     string `json:"query"`
	Policy    string `json:"policy"`
	CreatedAt string `json:"created_at"`
	TotalMS   int64  `json:"total_ms"`
}

// HistoryGetInput is the input schema for the history_get tool.
type HistoryGetInput struct {
	ID int64 `json:"id" jsonschema:"history record id"`
}

// HistoryGetOutput is a full history record.
type HistoryGetOutput struct {
	HistorySummary
	RequestedPolicy string           `json:"requested_policy"`
	Response        string           `json:"response"`
	Items           []ItemOutput     `json:"items"`
	Metrics         MetricsOutput    `json:"metrics"`
	Selection       *SelectionOutput `json:"selection,omitempty"`
}

// ReconnectInput is the (empty) input schema for the providers_reconnect tool.
type ReconnectInput struct{}

// ReconnectOutput reports the provider selected by a fresh probe.
type ReconnectOutput struct {
	Active  string `json:"active"`
	Healthy bool   `json:"healthy"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Answer a question with retrieval-augmented generation over text, facts and graph sources",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history_list",
		Description: "List recorded searches, newest first",
	}, s.handleHistoryList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history_get",
		Description: "Get a recorded search with its context and metrics",
	}, s.handleHistoryGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "providers_reconnect",
		Description: "Re-probe the language model providers and switch to the first healthy one",
	}, s.handleReconnect)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	kind, ok := domain.ParsePolicyKind(input.Policy)
	if !ok {
		return nil, SearchOutput{}, &domain.UnknownPolicyError{Kind: domain.PolicyKind(input.Policy)}
	}

	resp, err := s.ports.Search.Search(ctx, domain.SearchRequest{
		Query:              input.Query,
		Policy:             kind,
		Limit:              input.Limit,
		Overrides:          input.Overrides,
		SelectionThreshold: input.Threshold,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		RequestID:       resp.RequestID,
		Policy:          string(resp.Kind),
		RequestedPolicy: string(resp.RequestedKind),
		Response:        resp.Response,
		Summary:         resp.Justification.Summary,
		Items:           itemsOutput(resp.Context),
		Metrics:         metricsOutput(resp.Metrics),
		Selection:       selectionOutput(resp.Selection),
		RecordID:        resp.RecordID,
	}, nil
}

// handleHistoryList handles the history_list tool invocation.
func (s *Server) handleHistoryList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryListInput,
) (*mcp.CallToolResult, HistoryListOutput, error) {
	if s.ports.History == nil {
		return nil, HistoryListOutput{}, ErrHistoryUnavailable
	}

	records, err := s.ports.History.List(ctx, input.Offset, input.Limit)
	if err != nil {
		return nil, HistoryListOutput{}, fmt.Errorf("listing history: %w", err)
	}

	output := HistoryListOutput{
		Records: make([]HistorySummary, len(records)),
		Count:   len(records),
	}
	for i := range records {
		output.Records[i] = historySummary(&records[i])
	}
	return nil, output, nil
}

// handleHistoryGet handles the history_get tool invocation.
func (s *Server) handleHistoryGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryGetInput,
) (*mcp.CallToolResult, HistoryGetOutput, error) {
	if s.ports.History == nil {
		return nil, HistoryGetOutput{}, ErrHistoryUnavailable
	}

	rec, err := s.ports.History.Get(ctx, input.ID)
	if err != nil {
		return nil, HistoryGetOutput{}, fmt.Errorf("getting history record %d: %w", input.ID, err)
	}

	return nil, HistoryGetOutput{
		HistorySummary:  historySummary(rec),
		RequestedPolicy: string(rec.RequestedKind),
		Response:        rec.Response,
		Items:           itemsOutput(rec.Context),
		Metrics:         metricsOutput(rec.Metrics),
		Selection:       selectionOutput(rec.Selection),
	}, nil
}

func itemsOutput(rc *domain.RetrievalContext) []ItemOutput {
	if rc == nil {
		return []ItemOutput{}
	}
	out := make([]ItemOutput, len(rc.Items))
	for i, it := range rc.Items {
		out[i] = ItemOutput{
			Key:     it.Key,
			Source:  string(it.Source),
			Score:   it.Score,
			Content: it.Content,
		}
	}
	return out
}

func metricsOutput(m domain.Metrics) MetricsOutput {
	return MetricsOutput{
		SearchMS:        m.SearchTime.Milliseconds(),
		GenerationMS:    m.GenerationTime.Milliseconds(),
		TotalMS:         m.TotalTime.Milliseconds(),
		TokensUsed:      m.TokensUsed,
		TokensEstimated: m.TokensEstimated,
		CostEstimate:    m.CostEstimate,
		ResultCount:     m.ResultCount,
	}
}

func selectionOutput(sel *domain.SelectionResult) *SelectionOutput {
	if sel == nil {
		return nil
	}
	scores := make(map[string]float64, len(sel.Scores))
	for src, v := range sel.Scores {
		scores[string(src)] = v
	}
	return &SelectionOutput{
		Candidate:   string(sel.Candidate),
		Confidence:  sel.Confidence,
		Scores:      scores,
		Explanation: sel.Explanation,
	}
}

func historySummary(rec *domain.HistoryRecord) HistorySummary {
	return HistorySummary{
		ID:        rec.ID,
		Query:     rec.Query,
		Policy:    string(rec.Kind),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		TotalMS:   rec.Metrics.TotalTime.Milliseconds(),
	}
}

// handleReconnect re-probes the providers. No healthy provider is a normal
// outcome reported in the output, not a tool error.
func (s *Server) handleReconnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ReconnectInput,
) (*mcp.CallToolResult, ReconnectOutput, error) {
	if s.ports.Gateway == nil {
		return nil, ReconnectOutput{}, ErrGatewayUnavailable
	}

	err := s.ports.Gateway.Reconnect(ctx)
	if err != nil && !errors.Is(err, domain.ErrGenerationUnavailable) {
		return nil, ReconnectOutput{}, fmt.Errorf("reconnecting providers: %w", err)
	}
	active := s.ports.Gateway.Active()
	return nil, ReconnectOutput{Active: active, Healthy: active != ""}, nil
}
