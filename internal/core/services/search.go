package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/policy"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
	"github.com/custodia-labs/polyrag/internal/core/ports/driving"
	"github.com/custodia-labs/polyrag/internal/logger"
	"github.com/custodia-labs/polyrag/internal/telemetry"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultHistoryRetries is how many times a failed history write is retried.
const DefaultHistoryRetries = 3

// PolicyFactory builds a policy for a concrete kind.
type PolicyFactory interface {
	Create(kind domain.PolicyKind, cfg domain.RAGConfig) (policy.Policy, error)
}

// SearchService orchestrates one search: resolve configuration, select a
// policy when asked for auto, retrieve, generate, justify, measure and record.
type SearchService struct {
	resolver  driving.ConfigResolver
	selector  driving.PolicySelector
	factory   PolicyFactory
	history   driven.HistoryStore
	threshold float64
	retries   uint64
	now       func() time.Time
}

// NewSearchService creates a new search service.
// The selector and history parameters are optional (can be nil). Without a
// selector, auto requests run the hybrid policy.
func NewSearchService(
	resolver driving.ConfigResolver,
	selector driving.PolicySelector,
	factory PolicyFactory,
	history driven.HistoryStore,
) *SearchService {
	return &SearchService{
		resolver:  resolver,
		selector:  selector,
		factory:   factory,
		history:   history,
		threshold: DefaultSelectionThreshold,
		retries:   DefaultHistoryRetries,
		now:       time.Now,
	}
}

// SetSelectionThreshold sets the default auto-selection threshold.
func (s *SearchService) SetSelectionThreshold(threshold float64) {
	if threshold > 0 {
		s.threshold = threshold
	}
}

// SetHistoryRetries sets how many times a failed history write is retried.
func (s *SearchService) SetHistoryRetries(n int) {
	if n >= 0 {
		s.retries = uint64(n)
	}
}

// AvailablePolicies lists the policies a request may ask for.
func (s *SearchService) AvailablePolicies() []domain.PolicyDescriptor {
	return domain.PolicyDescriptors()
}

// Search runs the full request pipeline. Retrieval and generation failures
// end the request without a history record.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()
	requestID := uuid.NewString()

	resp, err := s.search(ctx, requestID, req)

	kind := string(req.Policy)
	if resp != nil {
		kind = string(resp.Kind)
	}
	telemetry.RecordSearch(ctx, kind, time.Since(start), err)
	if err != nil {
		logger.Debug("search %s failed: %v", requestID, err)
		return nil, err
	}
	return resp, nil
}

func (s *SearchService) search(
	ctx context.Context, requestID string, req domain.SearchRequest,
) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Request %s, query: %q", requestID, req.Query)
	wallStart := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	requested := req.Policy
	if requested == "" {
		requested = domain.PolicyAuto
	}
	if !requested.IsValid() {
		return nil, &domain.UnknownPolicyError{Kind: requested}
	}

	cfg, err := s.resolver.Resolve(req.Overrides)
	if err != nil {
		return nil, err
	}

	kind := requested
	var selection *domain.SelectionResult
	if requested == domain.PolicyAuto {
		kind, selection, err = s.selectPolicy(ctx, query, req.SelectionThreshold)
		if err != nil {
			return nil, err
		}
	}

	p, err := s.factory.Create(kind, cfg)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = cfg.TopKResults
	}
	limit = min(limit, cfg.MaxSearchResults)

	logger.Debug("Running %s policy, limit=%d", kind, limit)
	searchStart := time.Now()
	rc, err := p.Retrieve(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if rc == nil {
		rc = domain.NewRetrievalContext()
	}
	rc.Timing.Search = time.Since(searchStart)
	recordSubPolicies(ctx, rc)
	logger.Debug("Retrieved %d items in %v", len(rc.Items), rc.Timing.Search)

	genStart := time.Now()
	gen, err := p.Generate(ctx, query, rc)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	rc.Timing.Generation = time.Since(genStart)

	justification := p.Justify(rc)
	metrics := p.Measure(query, gen, rc)
	metrics.TotalTime = max(time.Since(wallStart), metrics.SearchTime+metrics.GenerationTime)

	resp := &domain.SearchResponse{
		RequestID:     requestID,
		Query:         query,
		RequestedKind: requested,
		Kind:          kind,
		Response:      gen.Text,
		Generation:    *gen,
		Justification: justification,
		Context:       rc,
		Metrics:       metrics,
		Selection:     selection,
	}
	resp.RecordID = s.persist(ctx, resp)
	return resp, nil
}

// selectPolicy resolves auto into a concrete kind.
func (s *SearchService) selectPolicy(
	ctx context.Context, query string, threshold float64,
) (domain.PolicyKind, *domain.SelectionResult, error) {
	if s.selector == nil {
		logger.Warn("No policy selector configured, using %s", domain.PolicyHybrid)
		return domain.PolicyHybrid, nil, nil
	}
	if threshold <= 0 {
		threshold = s.threshold
	}

	sel, err := s.selector.Select(ctx, query, threshold)
	if err != nil {
		return "", nil, fmt.Errorf("select policy: %w", err)
	}
	telemetry.RecordSelection(ctx, string(sel.Candidate), string(sel.Kind))
	logger.Debug("Selected %s (candidate %s, confidence %.3f)", sel.Kind, sel.Candidate, sel.Confidence)
	return sel.Kind, sel, nil
}

// persist appends a history record, retrying transient failures. It returns
// nil when the record could not be written.
func (s *SearchService) persist(ctx context.Context, resp *domain.SearchResponse) *int64 {
	if s.history == nil {
		return nil
	}

	rec := &domain.HistoryRecord{
		RequestID:     resp.RequestID,
		Query:         resp.Query,
		RequestedKind: resp.RequestedKind,
		Kind:          resp.Kind,
		Response:      resp.Response,
		Context:       resp.Context,
		Metrics:       resp.Metrics,
		Selection:     resp.Selection,
		CreatedAt:     s.now().UTC(),
	}

	var id int64
	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		id, err = s.history.Append(ctx, rec)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordHistoryFailure(ctx)
		logger.Warn("history: dropping record for request %s: %v", resp.RequestID, err)
		return nil
	}
	return &id
}

// recordSubPolicies exports fused sub-policy outcomes.
func recordSubPolicies(ctx context.Context, rc *domain.RetrievalContext) {
	status, ok := rc.Metadata["sub_policies"].(map[string]string)
	if !ok {
		return
	}
	for source, st := range status {
		telemetry.RecordSubPolicy(ctx, source, st)
	}
}
