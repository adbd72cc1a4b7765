// Package bootstrap assembles the polyrag services from settings.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/polyrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/polyrag/internal/adapters/driven/config/file"
	retrieval "github.com/custodia-labs/polyrag/internal/adapters/driven/retrieval/memory"
	"github.com/custodia-labs/polyrag/internal/adapters/driven/scorer/linear"
	historymem "github.com/custodia-labs/polyrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/polyrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/polyrag/internal/config"
	"github.com/custodia-labs/polyrag/internal/core/policy"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
	"github.com/custodia-labs/polyrag/internal/core/services"
	"github.com/custodia-labs/polyrag/internal/logger"
)

// Options are the process-level inputs that do not come from the config file.
type Options struct {
	// ConfigPath is an explicit config file. Empty means ~/.polyrag/config.toml.
	ConfigPath string

	// Verbose and JSON force the corresponding log settings on.
	Verbose bool
	JSON    bool
}

// App holds the wired services. Close releases them.
type App struct {
	Settings    *config.Settings
	ConfigStore driven.ConfigStore
	Resolver    *services.ConfigService
	Selector    *services.SelectorService
	Gateway     *services.GatewayService
	Search      *services.SearchService
	History     *services.HistoryService
	Validator   *ai.ConfigValidator
	Library     *retrieval.Library

	// Warnings lists non-fatal problems found while wiring.
	Warnings []string

	closers []func() error
}

// New loads settings and wires every service.
func New(opts Options) (*App, error) {
	store, err := openConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	settings, err := config.Load(store)
	if err != nil {
		return nil, err
	}
	logger.SetVerbose(settings.Log.Verbose || opts.Verbose)
	logger.SetJSON(settings.Log.JSON || opts.JSON)
	logger.Debug("config: loaded %s", store.Path())

	app := &App{
		Settings:    settings,
		ConfigStore: store,
		Validator:   ai.NewConfigValidator(),
	}
	if err := app.wire(); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire() error {
	s := a.Settings

	resolver, err := services.NewConfigService(s.Search)
	if err != nil {
		return fmt.Errorf("config resolver: %w", err)
	}
	a.Resolver = resolver

	var learned driven.LearnedScorer
	if s.Selector.ModelPath != "" {
		scorer, err := linear.Load(s.Selector.ModelPath)
		if err != nil {
			return fmt.Errorf("learned selector: %w", err)
		}
		logger.Info("selector: loaded model %q", scorer.Version())
		learned = scorer
	}
	selector, err := services.NewSelectorService(learned, s.Selector.Alpha, s.Selector.CacheSize)
	if err != nil {
		return err
	}
	a.Selector = selector

	library, err := retrieval.NewLibrary(a.loadCorpus)
	if err != nil {
		return err
	}
	a.Library = library
	passages, facts, entities := library.Stats()
	logger.Debug("corpus: %d passages, %d facts, %d entities", passages, facts, entities)
	if s.Corpus.Watch {
		if err := a.watchCorpus(); err != nil {
			return err
		}
	}

	built := ai.CreateProviders(s.Providers(), s.LLM.RequestTimeout)
	for _, w := range built.Warnings {
		logger.Warn("llm: %s", w)
		a.Warnings = append(a.Warnings, w)
	}
	if len(built.Providers) == 0 {
		a.Warnings = append(a.Warnings, "no language model provider configured")
	}
	a.Gateway = services.NewGatewayService(built.Providers, services.GatewayConfig{
		ProbeTimeout: s.LLM.ProbeTimeout,
		RateLimit:    s.LLM.RateLimit,
		Burst:        s.LLM.Burst,
	})
	a.closers = append(a.closers, a.Gateway.Close)

	factory := policy.NewFactory(policy.Backends{
		Text:  library.Text(),
		Facts: library.Facts(),
		Graph: library.Graph(),
	}, a.Gateway, selector)

	history, err := a.openHistory()
	if err != nil {
		return err
	}

	a.Search = services.NewSearchService(resolver, selector, factory, history)
	a.Search.SetSelectionThreshold(s.Selector.Threshold)
	a.Search.SetHistoryRetries(s.History.Retries)
	a.History = services.NewHistoryService(history)
	return nil
}

// loadCorpus reads the corpus file and the documents directory.
func (a *App) loadCorpus() (*retrieval.Corpus, error) {
	s := a.Settings
	corpus, err := retrieval.LoadCorpus(s.Corpus.Path)
	if err != nil {
		return nil, err
	}
	if s.Corpus.Documents != "" {
		chunker := retrieval.NewChunker(s.Search.ChunkSize, s.Search.ChunkOverlap)
		docs, err := retrieval.LoadDocuments(s.Corpus.Documents, chunker)
		if err != nil {
			return nil, err
		}
		corpus.Passages = append(corpus.Passages, docs...)
	}
	return corpus, nil
}

// watchCorpus reloads the library when the corpus file or documents change.
func (a *App) watchCorpus() error {
	var paths []string
	if p := a.Settings.Corpus.Path; p != "" {
		paths = append(paths, p)
	}
	if d := a.Settings.Corpus.Documents; d != "" {
		paths = append(paths, d)
	}
	if len(paths) == 0 {
		logger.Debug("corpus: watch enabled without a corpus path or documents directory")
		return nil
	}
	w, err := a.Library.Watch(paths, retrieval.DefaultDebounce, nil)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, w.Close)
	logger.Debug("corpus: watching %v", paths)
	return nil
}

func (a *App) openHistory() (driven.HistoryStore, error) {
	if a.Settings.History.Driver == "memory" {
		return historymem.NewHistoryStore(), nil
	}
	store, err := sqlite.NewStore(a.Settings.History.Dir)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	logger.Debug("history: %s", store.Path())
	return store.HistoryStore(), nil
}

// ProviderStatus probes every configured provider in preference order.
func (a *App) ProviderStatus() []ai.ProviderStatus {
	return a.Validator.CheckAll(a.Settings.Providers())
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openConfigStore(path string) (*file.ConfigStore, error) {
	if path == "" {
		return file.NewConfigStore("")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return file.NewConfigStoreAt(path)
}
