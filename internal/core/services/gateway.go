package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/policy"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
	"github.com/custodia-labs/polyrag/internal/core/ports/driving"
	"github.com/custodia-labs/polyrag/internal/logger"
	"github.com/custodia-labs/polyrag/internal/telemetry"
)

// Ensure GatewayService can serve policy generation and driving adapters.
var (
	_ policy.Generator        = (*GatewayService)(nil)
	_ driving.ProviderGateway = (*GatewayService)(nil)
)

// DefaultProbeTimeout bounds each provider health check.
const DefaultProbeTimeout = 5 * time.Second

// GatewayConfig configures the provider gateway.
type GatewayConfig struct {
	// ProbeTimeout bounds each health check (default: 5s).
	ProbeTimeout time.Duration

	// RateLimit caps generation requests per second. Zero disables it.
	RateLimit float64

	// Burst is the limiter burst size (default: 1).
	Burst int
}

// GatewayService routes generation to the first healthy provider in
// preference order. Providers are probed once, lazily, and again only on
// Reconnect.
type GatewayService struct {
	providers    []driven.LLMProvider
	probeTimeout time.Duration
	limiter      *rate.Limiter

	mu          sync.RWMutex
	initialized bool
	active      driven.LLMProvider
}

// NewGatewayService creates a gateway over providers, ordered by preference.
func NewGatewayService(providers []driven.LLMProvider, cfg GatewayConfig) *GatewayService {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	g := &GatewayService{
		providers:    providers,
		probeTimeout: cfg.ProbeTimeout,
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return g
}

// Init probes the providers unless that already happened. It returns
// domain.ErrGenerationUnavailable when no provider is healthy. A probe cut
// short by ctx is not remembered, so the next caller probes again.
func (g *GatewayService) Init(ctx context.Context) error {
	g.mu.RLock()
	done, active := g.initialized, g.active
	g.mu.RUnlock()
	if done {
		if active == nil {
			return domain.ErrGenerationUnavailable
		}
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.initialized {
		if err := g.probeLocked(ctx); err != nil {
			return err
		}
	}
	if g.active == nil {
		return domain.ErrGenerationUnavailable
	}
	return nil
}

// Reconnect forgets the active provider and probes again.
func (g *GatewayService) Reconnect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.probeLocked(ctx); err != nil {
		return err
	}
	if g.active == nil {
		return domain.ErrGenerationUnavailable
	}
	return nil
}

// Active returns the name of the active provider, or "" when none is healthy
// or probing has not happened yet.
func (g *GatewayService) Active() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.active == nil {
		return ""
	}
	return g.active.Name()
}

// Generate sends req to the active provider.
func (g *GatewayService) Generate(ctx context.Context, req driven.GenerateRequest) (*domain.GenerationResult, error) {
	if err := g.Init(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	provider := g.active
	g.mu.RUnlock()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %w", domain.ErrGenerationUnavailable, err)
		}
	}

	start := time.Now()
	resp, err := provider.Generate(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		telemetry.RecordGeneration(ctx, provider.Name(), elapsed, 0, err)
		logger.Warn("gateway: %s generation failed: %v", provider.Name(), err)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrGenerationUnavailable, provider.Name(), err)
	}

	res := &domain.GenerationResult{
		Text:     resp.Text,
		Elapsed:  elapsed,
		Usage:    domain.NewTokenUsage(resp.PromptTokens, resp.CompletionTokens),
		Model:    resp.Model,
		Provider: provider.Name(),
	}
	tokens := 0
	if res.Usage.Total != nil {
		tokens = *res.Usage.Total
	}
	telemetry.RecordGeneration(ctx, provider.Name(), elapsed, tokens, nil)
	logger.Debug("gateway: %s answered in %v", provider.Name(), elapsed)
	return res, nil
}

// Close releases every provider.
func (g *GatewayService) Close() error {
	var errs []error
	for _, p := range g.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// probeLocked checks providers in order and keeps the first healthy one.
// When ctx ends mid-probe the gateway stays uninitialised. Callers hold g.mu.
func (g *GatewayService) probeLocked(ctx context.Context) error {
	g.initialized = false
	g.active = nil

	for _, p := range g.providers {
		pctx, cancel := context.WithTimeout(ctx, g.probeTimeout)
		err := p.Ping(pctx)
		cancel()
		if ctx.Err() != nil {
			logger.Debug("gateway: probe interrupted: %v", ctx.Err())
			return fmt.Errorf("%w: probe interrupted: %w", domain.ErrGenerationUnavailable, ctx.Err())
		}
		if err != nil {
			logger.Warn("gateway: provider %s unhealthy: %v", p.Name(), err)
			continue
		}
		logger.Info("gateway: using provider %s", p.Name())
		g.initialized = true
		g.active = p
		return nil
	}
	g.initialized = true
	logger.Warn("gateway: no healthy provider among %d, generation disabled", len(g.providers))
	return nil
}
