package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/metrics"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/listenupapp/readup/internal/store/sqlite"
)

// AchievementService evaluates the catalog against live aggregates and keeps
// the durable first-progress and first-achieved dates.
type AchievementService struct {
	ledger  *sqlite.Store
	stats   *StatsService
	catalog *achievement.Catalog
	events  EventEmitter
	logger  *slog.Logger
}

// NewAchievementService creates a new achievement service. A nil catalog
// uses the built-in one.
func NewAchievementService(ledger *sqlite.Store, stats *StatsService, catalog *achievement.Catalog, events EventEmitter, logger *slog.Logger) *AchievementService {
	if catalog == nil {
		catalog = achievement.Default()
	}
	return &AchievementService{
		ledger:  ledger,
		stats:   stats,
		catalog: catalog,
		events:  emitterOrNoop(events),
		logger:  logger,
	}
}

// List returns every catalog entry in catalog order. Progress and completion
// come from the current aggregates; dates come from the ledger.
func (s *AchievementService) List(ctx context.Context) ([]achievement.Trophy, error) {
	agg, err := s.stats.Aggregates(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.ledger.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}

	trophies := s.catalog.Evaluate(agg)
	for i := range trophies {
		if row, ok := stored[trophies[i].ID]; ok {
			trophies[i].UnlockDate = row.UnlockDate
			trophies[i].AchievementDate = row.AchievementDate
		}
	}
	return trophies, nil
}

// Sync evaluates the catalog and writes rows whose progress changed. It
// returns the achievements reached for the first time by this call.
func (s *AchievementService) Sync(ctx context.Context) ([]achievement.Trophy, error) {
	agg, err := s.stats.Aggregates(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.ledger.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}

	now := s.ledger.Now()
	var unlocked []achievement.Trophy
	for _, t := range s.catalog.Evaluate(agg) {
		row, exists := stored[t.ID]
		if t.Progress == 0 && !exists {
			continue
		}
		if exists && row.Progress == t.Progress && row.MaxProgress == t.MaxProgress &&
			(row.AchievementDate != nil || !t.IsCompleted) {
			continue
		}

		next := domain.Achievement{
			ID:          t.ID,
			Progress:    t.Progress,
			MaxProgress: t.MaxProgress,
			IsCompleted: t.IsCompleted,
			UpdatedAt:   now,
		}
		if t.Progress > 0 {
			next.UnlockDate = &now
		}
		if t.IsCompleted {
			next.AchievementDate = &now
		}

		newly, err := s.ledger.UpsertAchievement(ctx, next)
		if err != nil {
			return unlocked, err
		}
		if !newly {
			continue
		}

		t.UnlockDate, t.AchievementDate = row.UnlockDate, &now
		if t.UnlockDate == nil {
			t.UnlockDate = &now
		}
		unlocked = append(unlocked, t)
		metrics.AchievementsUnlocked.Inc()
		s.events.Emit(sse.NewAchievementUnlockedEvent(t.ID, t.Title, now))
		s.logger.Info("achievement unlocked", "achievement_id", t.ID)
	}
	return unlocked, nil
}

// syncQuietly runs Sync after a write that already succeeded. Failures are
// logged and the caller's result stands.
func (s *AchievementService) syncQuietly(ctx context.Context) []achievement.Trophy {
	if s == nil {
		return nil
	}
	unlocked, err := s.Sync(ctx)
	if err != nil {
		s.logger.Warn("achievement sync failed", "error", err)
	}
	return unlocked
}
