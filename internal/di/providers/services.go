package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/service"
	"github.com/listenupapp/readup/internal/state"
)

// ProvideSessionState loads the session state mirror from the badger store.
func ProvideSessionState(i do.Injector) (*state.Manager, error) {
	kv := do.MustInvoke[*StateStoreHandle](i)
	holder := do.MustInvoke[*corpus.Holder](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	m := state.New(kv.Store, holder, sseHandle.Manager, log.Component("state"))
	if err := m.Load(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// ProvideStatsService provides the statistics service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	ledger := do.MustInvoke[*LedgerHandle](i)
	holder := do.MustInvoke[*corpus.Holder](i)
	rule := do.MustInvoke[corpus.TestamentRule](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(ledger.Store, holder, rule, log.Component("stats")), nil
}

// ProvideAchievementService provides the achievement service.
func ProvideAchievementService(i do.Injector) (*service.AchievementService, error) {
	ledger := do.MustInvoke[*LedgerHandle](i)
	stats := do.MustInvoke[*service.StatsService](i)
	catalog := do.MustInvoke[*achievement.Catalog](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAchievementService(ledger.Store, stats, catalog, sseHandle.Manager, log.Component("achievements")), nil
}

// ProvideProgressService provides the progress service.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	ledger := do.MustInvoke[*LedgerHandle](i)
	st := do.MustInvoke[*state.Manager](i)
	holder := do.MustInvoke[*corpus.Holder](i)
	achievements := do.MustInvoke[*service.AchievementService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	rule := do.MustInvoke[corpus.TestamentRule](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProgressService(ledger.Store, st, holder, achievements, sseHandle.Manager, rule, log.Component("progress")), nil
}

// ProvideReactionService provides the reaction service.
func ProvideReactionService(i do.Injector) (*service.ReactionService, error) {
	ledger := do.MustInvoke[*LedgerHandle](i)
	holder := do.MustInvoke[*corpus.Holder](i)
	achievements := do.MustInvoke[*service.AchievementService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReactionService(ledger.Store, holder, achievements, sseHandle.Manager, log.Component("reactions")), nil
}

// ProvideReadingSessionService provides the reading session service.
func ProvideReadingSessionService(i do.Injector) (*service.ReadingSessionService, error) {
	ledger := do.MustInvoke[*LedgerHandle](i)
	holder := do.MustInvoke[*corpus.Holder](i)
	achievements := do.MustInvoke[*service.AchievementService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReadingSessionService(ledger.Store, holder, achievements, log.Component("sessions")), nil
}
