package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/metrics"
	"github.com/listenupapp/readup/internal/streak"
)

// BookCheck names the book a main completion belongs to and the segments that
// must all be read for it to count as complete. A zero BookCheck skips the check.
type BookCheck struct {
	Code     string
	Segments []string
}

// RecordMainCompletion records a main-context read in one transaction: the
// completion row, the day's activity counter, the streak, and the book flag.
// Nothing is written if any step fails.
func (s *Store) RecordMainCompletion(ctx context.Context, segmentID, color string, book BookCheck) (domain.MainCompletionResult, error) {
	var res domain.MainCompletionResult

	c, err := s.newCompletion(segmentID, domain.MainContext(), color)
	if err != nil {
		return res, s.writeErr(err, "record main completion")
	}
	res.Completion = c
	res.BookCode = book.Code

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertCompletion(ctx, tx, c); err != nil {
			return err
		}
		if err := addDailyActivity(ctx, tx, c.CompletedDate); err != nil {
			return err
		}

		current, err := getStreakSummary(ctx, tx)
		if err != nil {
			return err
		}
		next, changed := streak.Apply(&current, c.CompletedDate)
		if changed {
			next.UpdatedAt = c.CompletedAt
			if err := putStreakSummary(ctx, tx, next); err != nil {
				return err
			}
		}
		res.Streak, res.StreakChanged = next, changed

		if book.Code == "" {
			return nil
		}
		res.BookCompleted, res.BookNewlyMarked, err = checkBook(ctx, tx, book, c.CompletedAt)
		return err
	})
	if err != nil {
		return domain.MainCompletionResult{}, s.writeErr(err, "record main completion")
	}

	metrics.Completions.WithLabelValues(string(domain.ContextMain)).Inc()
	metrics.CurrentStreak.Set(float64(res.Streak.CurrentStreak))
	if res.StreakChanged {
		s.logger.Debug("streak updated",
			"current", res.Streak.CurrentStreak,
			"longest", res.Streak.LongestStreak,
			"date", res.Streak.LastReadDate.String())
	}
	return res, nil
}

// RecordDailyActivity increments the counter for date.
func (s *Store) RecordDailyActivity(ctx context.Context, date domain.Date) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return addDailyActivity(ctx, tx, date)
	})
	if err != nil {
		return s.writeErr(err, "record daily activity")
	}
	return nil
}

func addDailyActivity(ctx context.Context, exec execer, date domain.Date) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO daily_activity (date, segment_count) VALUES (?, 1)
		ON CONFLICT(date) DO UPDATE SET segment_count = segment_count + 1`,
		date.String())
	return err
}

// GetDailyActivity returns activity on or after since, oldest first.
// A zero since returns the full history.
func (s *Store) GetDailyActivity(ctx context.Context, since domain.Date) ([]domain.DailyActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, segment_count FROM daily_activity
		WHERE date >= ?
		ORDER BY date`, since.String())
	if err != nil {
		return nil, s.readErr(err, "get daily activity")
	}
	defer rows.Close()

	var out []domain.DailyActivity
	for rows.Next() {
		var (
			date string
			a    domain.DailyActivity
		)
		if err := rows.Scan(&date, &a.SegmentCount); err != nil {
			return nil, s.readErr(err, "get daily activity")
		}
		if a.Date, err = domain.ParseDate(date); err != nil {
			return nil, s.readErr(err, "get daily activity")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "get daily activity")
	}
	return out, nil
}

// CountDaysRead returns the number of dates with any main-context activity.
func (s *Store) CountDaysRead(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_activity WHERE segment_count > 0`).Scan(&n); err != nil {
		return 0, s.readErr(err, "count days read")
	}
	return n, nil
}

// GetStreakSummary returns the singleton streak record.
func (s *Store) GetStreakSummary(ctx context.Context) (domain.StreakSummary, error) {
	summary, err := getStreakSummary(ctx, s.db)
	if err != nil {
		return domain.StreakSummary{}, s.readErr(err, "get streak")
	}
	return summary, nil
}

// UpdateStreak overwrites the streak record. Only the streak calculator's
// output should be passed here.
func (s *Store) UpdateStreak(ctx context.Context, summary domain.StreakSummary) error {
	if summary.UpdatedAt.IsZero() {
		summary.UpdatedAt = s.now()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return putStreakSummary(ctx, tx, summary)
	})
	if err != nil {
		return s.writeErr(err, "update streak")
	}
	metrics.CurrentStreak.Set(float64(summary.CurrentStreak))
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getStreakSummary treats a missing row as a fresh summary rather than an error.
func getStreakSummary(ctx context.Context, q queryRower) (domain.StreakSummary, error) {
	var (
		summary   domain.StreakSummary
		lastRead  sql.NullString
		updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT current_streak, longest_streak, last_read_date, updated_at
		FROM streak_summary WHERE id = 1`).Scan(
		&summary.CurrentStreak, &summary.LongestStreak, &lastRead, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StreakSummary{}, nil
	}
	if err != nil {
		return summary, err
	}
	if lastRead.Valid && lastRead.String != "" {
		if summary.LastReadDate, err = domain.ParseDate(lastRead.String); err != nil {
			return summary, err
		}
	}
	if updatedAt != "" {
		if t, err := parseTime(updatedAt); err == nil {
			summary.UpdatedAt = t
		}
	}
	return summary, nil
}

func putStreakSummary(ctx context.Context, exec execer, summary domain.StreakSummary) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO streak_summary (id, current_streak, longest_streak, last_read_date, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = MAX(streak_summary.longest_streak, excluded.longest_streak),
			last_read_date = excluded.last_read_date,
			updated_at = excluded.updated_at`,
		summary.CurrentStreak, summary.LongestStreak,
		nullString(summary.LastReadDate.String()), formatTime(summary.UpdatedAt))
	return err
}
