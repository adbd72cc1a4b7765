// Command polyrag answers questions with multi-policy retrieval augmented
// generation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/polyrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/polyrag/internal/bootstrap"
	"github.com/custodia-labs/polyrag/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetLoader(load)

	if err := cli.Execute(ctx); err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

// load wires the application for commands that need it.
func load(opts cli.Options) (*cli.Services, func() error, error) {
	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: opts.ConfigPath,
		Verbose:    opts.Verbose,
		JSON:       opts.JSON,
	})
	if err != nil {
		return nil, nil, err
	}

	return &cli.Services{
		Search:  app.Search,
		History: app.History,
		Config:  app.Resolver,
		Store:   app.ConfigStore,
		Gateway: app.Gateway,
		Providers: func(context.Context) []cli.ProviderReport {
			statuses := app.ProviderStatus()
			reports := make([]cli.ProviderReport, len(statuses))
			for i, s := range statuses {
				reports[i] = cli.ProviderReport{
					Provider: s.Settings.Provider,
					Model:    s.Settings.Model,
					BaseURL:  s.Settings.BaseURL,
					Err:      s.Err,
				}
			}
			return reports
		},
		Warnings: app.Warnings,
	}, app.Close, nil
}
