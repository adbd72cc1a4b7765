// Package cli provides the cobra command tree for polyrag.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
	"github.com/custodia-labs/polyrag/internal/core/ports/driving"
)

var version = "dev"

// Options carry the global flags to the Loader.
type Options struct {
	ConfigPath string
	Verbose    bool
	JSON       bool
}

// ProviderReport is the health of one configured language model provider.
type ProviderReport struct {
	Provider domain.AIProvider
	Model    string
	BaseURL  string
	Err      error
}

// Services are the ports the commands drive.
type Services struct {
	Search  driving.SearchService
	History driving.HistoryService
	Config  driving.ConfigResolver

	// Store is the TOML settings file behind `config show|set`.
	Store driven.ConfigStore

	// Providers probes the configured providers. Optional.
	Providers func(ctx context.Context) []ProviderReport

	// Gateway is the generation gateway whose active provider `providers`
	// reports and `providers --reconnect` re-probes. Optional.
	Gateway driving.ProviderGateway

	// Warnings are printed once before the first command output.
	Warnings []string
}

// Loader builds the services for one invocation. The returned function
// releases them.
type Loader func(opts Options) (*Services, func() error, error)

var (
	loader   Loader
	services *Services
	release  func() error
	opts     Options
)

var rootCmd = &cobra.Command{
	Use:   "polyrag",
	Short: "Multi-policy retrieval augmented generation",
	Long: `polyrag answers questions from text passages, structured facts and a
knowledge graph. Each search runs one retrieval policy (text, facts, graph,
hybrid or smart_hybrid) or lets the selector pick one (auto).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.polyrag/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.JSON, "log-json", false, "emit logs as JSON")
}

// SetVersion sets the version reported by `polyrag version`.
func SetVersion(v string) {
	version = v
}

// SetLoader registers the function that wires services on first use.
func SetLoader(l Loader) {
	loader = l
}

// SetServices injects ready services, bypassing the Loader.
func SetServices(s *Services) {
	services = s
}

// Execute runs the root command and releases loaded services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if release != nil {
			_ = release()
			release = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// requireServices returns the services, loading them on first use.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if loader == nil {
		return nil, errors.New("services not configured")
	}

	s, closeFn, err := loader(opts)
	if err != nil {
		return nil, fmt.Errorf("initialise: %w", err)
	}
	services, release = s, closeFn
	for _, w := range s.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return services, nil
}

// maskAPIKey masks an API key for display, showing only first and last 4 chars.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
