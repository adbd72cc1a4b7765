package driving

import "context"

// ProviderGateway exposes the generation gateway's provider health.
type ProviderGateway interface {
	// Init probes the providers once. Later calls reuse the result.
	Init(ctx context.Context) error

	// Reconnect discards the active provider and probes again.
	Reconnect(ctx context.Context) error

	// Active names the provider in use, or "" when none is healthy.
	Active() string
}
