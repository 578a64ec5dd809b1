// Package di provides dependency injection configuration for the ReadUp progress engine.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/config"
	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/di/providers"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/service"
	"github.com/listenupapp/readup/internal/state"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSSEManager)

	// Content
	do.Provide(injector, providers.ProvideCorpus)
	do.Provide(injector, providers.ProvideTestamentRule)
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideCorpusWatcher)

	// Persistence
	do.Provide(injector, providers.ProvideLedger)
	do.Provide(injector, providers.ProvideStateStore)
	do.Provide(injector, providers.ProvideSessionState)

	// Business services
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideAchievementService)
	do.Provide(injector, providers.ProvideProgressService)
	do.Provide(injector, providers.ProvideReactionService)
	do.Provide(injector, providers.ProvideReadingSessionService)

	// Workers
	do.Provide(injector, providers.ProvideBootReconciliation)
	do.Provide(injector, providers.ProvideStaleSessionJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order. Reconciliation runs
// before the HTTP server starts listening.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[*corpus.Holder](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[corpus.TestamentRule](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*achievement.Catalog](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.LedgerHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StateStoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*state.Manager](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*service.ProgressService](injector)
	_ = do.MustInvoke[*service.ReactionService](injector)
	_ = do.MustInvoke[*service.ReadingSessionService](injector)

	if _, err := do.Invoke[*providers.BootReconciliation](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.CorpusWatcherHandle](injector)
	_ = do.MustInvoke[*providers.StaleSessionJob](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
