package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/store/sqlite"
	"github.com/listenupapp/readup/internal/streak"
)

// StatsService answers aggregate questions from the ledger. Every method
// returns an error instead of zeros when the ledger cannot be read.
type StatsService struct {
	ledger *sqlite.Store
	corpus *corpus.Holder
	rule   corpus.TestamentRule
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(ledger *sqlite.Store, holder *corpus.Holder, rule corpus.TestamentRule, logger *slog.Logger) *StatsService {
	return &StatsService{
		ledger: ledger,
		corpus: holder,
		rule:   rule,
		logger: logger,
	}
}

// GetCompletedSegmentsCount returns how many distinct segments have a
// main-context completion.
func (s *StatsService) GetCompletedSegmentsCount(ctx context.Context) (int, error) {
	return s.ledger.CountCompletedMain(ctx)
}

// GetStreak returns the streak summary with the current streak as shown to
// the reader: zero once a day has been missed.
func (s *StatsService) GetStreak(ctx context.Context) (domain.StreakSummary, error) {
	summary, err := s.ledger.GetStreakSummary(ctx)
	if err != nil {
		return domain.StreakSummary{}, err
	}
	summary.CurrentStreak = streak.Effective(summary, s.ledger.Today())
	return summary, nil
}

// GetCurrentStreak returns the effective current streak.
func (s *StatsService) GetCurrentStreak(ctx context.Context) (int, error) {
	summary, err := s.GetStreak(ctx)
	return summary.CurrentStreak, err
}

// GetBestStreak returns the longest streak ever reached.
func (s *StatsService) GetBestStreak(ctx context.Context) (int, error) {
	summary, err := s.ledger.GetStreakSummary(ctx)
	return summary.LongestStreak, err
}

// GetEmojiStats counts reactions per palette entry.
func (s *StatsService) GetEmojiStats(ctx context.Context) (domain.EmojiStats, error) {
	return s.ledger.CountByEmoji(ctx)
}

// CheckEmojiCollection reports which palette entries have been used.
func (s *StatsService) CheckEmojiCollection(ctx context.Context) (domain.EmojiCollection, error) {
	stats, err := s.ledger.CountByEmoji(ctx)
	if err != nil {
		return domain.EmojiCollection{}, err
	}
	return stats.Collection(), nil
}

// GetSourceStats counts distinct completed segments per context kind, so a
// re-read does not count twice.
func (s *StatsService) GetSourceStats(ctx context.Context) (domain.SourceStats, error) {
	return s.ledger.CountBySource(ctx)
}

// GetOldTestamentProgress returns completion of the old testament.
func (s *StatsService) GetOldTestamentProgress(ctx context.Context) (domain.TestamentProgress, error) {
	all, err := s.testaments(ctx)
	return all[domain.OldTestament], err
}

// GetNewTestamentProgress returns completion of the new testament.
func (s *StatsService) GetNewTestamentProgress(ctx context.Context) (domain.TestamentProgress, error) {
	all, err := s.testaments(ctx)
	return all[domain.NewTestament], err
}

func (s *StatsService) testaments(ctx context.Context) (map[domain.Testament]domain.TestamentProgress, error) {
	c := s.corpus.Current()
	counts, err := s.ledger.CountByTestament(ctx, func(segmentID string) (domain.Testament, bool) {
		return c.Testament(segmentID, s.rule)
	})
	if err != nil {
		return nil, err
	}
	totals := c.TestamentTotals(s.rule)
	return map[domain.Testament]domain.TestamentProgress{
		domain.OldTestament: domain.NewTestamentProgress(domain.OldTestament, counts[domain.OldTestament], totals[domain.OldTestament]),
		domain.NewTestament: domain.NewTestamentProgress(domain.NewTestament, counts[domain.NewTestament], totals[domain.NewTestament]),
	}, nil
}

// GetCompletedBooks lists flagged books in completion order.
func (s *StatsService) GetCompletedBooks(ctx context.Context) ([]domain.BookCompletion, error) {
	return s.ledger.CompletedBooks(ctx)
}

// CheckBookCompletion reports whether a book is complete, setting the durable
// flag when the ledger shows every required segment read.
func (s *StatsService) CheckBookCompletion(ctx context.Context, code string) (bool, error) {
	book, ok := s.corpus.Current().BookByCode(code)
	if !ok {
		return false, domainerrors.NotFoundf("book %q not found", code)
	}
	segments, _ := s.corpus.Current().BookSegments(book.Code)
	return s.ledger.CheckBookCompletion(ctx, sqlite.BookCheck{Code: book.Code, Segments: segments})
}

// Calendar returns the last days of activity ending today.
func (s *StatsService) Calendar(ctx context.Context, days int) ([]domain.StreakDay, error) {
	if days <= 0 {
		days = streak.CalendarDays
	}
	today := s.ledger.Today()
	activity, err := s.ledger.GetDailyActivity(ctx, today.AddDays(-(days - 1)))
	if err != nil {
		return nil, err
	}
	return streak.Calendar(activity, today, days), nil
}

// Aggregates gathers every counter the achievement rules read.
func (s *StatsService) Aggregates(ctx context.Context) (domain.Aggregates, error) {
	var (
		agg domain.Aggregates
		err error
	)
	if agg.CompletedSegments, err = s.ledger.CountCompletedMain(ctx); err != nil {
		return domain.Aggregates{}, err
	}
	summary, err := s.GetStreak(ctx)
	if err != nil {
		return domain.Aggregates{}, err
	}
	agg.CurrentStreak, agg.LongestStreak = summary.CurrentStreak, summary.LongestStreak

	if agg.DaysRead, err = s.ledger.CountDaysRead(ctx); err != nil {
		return domain.Aggregates{}, err
	}
	readingMs, err := s.ledger.TotalReadingTime(ctx)
	if err != nil {
		return domain.Aggregates{}, err
	}
	agg.ReadingMinutes = int(readingMs / 60_000)

	if agg.EmojiCounts, err = s.ledger.CountByEmoji(ctx); err != nil {
		return domain.Aggregates{}, err
	}
	if agg.ColorCounts, err = s.ledger.CountByColor(ctx); err != nil {
		return domain.Aggregates{}, err
	}

	books, err := s.ledger.CompletedBooks(ctx)
	if err != nil {
		return domain.Aggregates{}, err
	}
	agg.CompletedBooks = make(map[string]bool, len(books))
	for _, b := range books {
		agg.CompletedBooks[b.BookCode] = true
	}

	if agg.Testaments, err = s.testaments(ctx); err != nil {
		return domain.Aggregates{}, err
	}
	if agg.PlansCompleted, err = s.ledger.CountCompletedRuns(ctx, domain.RunPlan); err != nil {
		return domain.Aggregates{}, err
	}
	if agg.ChallengesCompleted, err = s.ledger.CountCompletedRuns(ctx, domain.RunChallenge); err != nil {
		return domain.Aggregates{}, err
	}
	return agg, nil
}

// GetReadingStats returns the headline numbers of the stats screen.
func (s *StatsService) GetReadingStats(ctx context.Context) (domain.ReadingStats, error) {
	agg, err := s.Aggregates(ctx)
	if err != nil {
		return domain.ReadingStats{}, err
	}
	summary, err := s.GetStreak(ctx)
	if err != nil {
		return domain.ReadingStats{}, err
	}
	sources, err := s.ledger.CountBySource(ctx)
	if err != nil {
		return domain.ReadingStats{}, err
	}
	books, err := s.ledger.CompletedBooks(ctx)
	if err != nil {
		return domain.ReadingStats{}, err
	}
	readingMs, err := s.ledger.TotalReadingTime(ctx)
	if err != nil {
		return domain.ReadingStats{}, err
	}

	return domain.ReadingStats{
		CompletedSegments: agg.CompletedSegments,
		CurrentStreak:     agg.CurrentStreak,
		LongestStreak:     agg.LongestStreak,
		LastReadDate:      summary.LastReadDate,
		DaysRead:          agg.DaysRead,
		ReadingTimeMs:     readingMs,
		Sources:           sources,
		OldTestament:      agg.Testaments[domain.OldTestament],
		NewTestament:      agg.Testaments[domain.NewTestament],
		CompletedBooks:    books,
		Emoji:             agg.EmojiCounts,
		Colors:            agg.ColorCounts,
	}, nil
}
