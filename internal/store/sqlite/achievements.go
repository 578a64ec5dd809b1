package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/readup/internal/domain"
)

// UpsertAchievement writes an achievement row. Progress fields are replaced;
// unlock_date and achievement_date are set the first time they are non-null and
// never change afterwards. Returns true when this call set achievement_date.
func (s *Store) UpsertAchievement(ctx context.Context, a domain.Achievement) (bool, error) {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = s.now()
	}

	var newlyAchieved bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var before sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT achievement_date FROM achievements WHERE achievement_id = ?`, a.ID).Scan(&before)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO achievements (achievement_id, progress, max_progress, is_completed,
				unlock_date, achievement_date, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(achievement_id) DO UPDATE SET
				progress = excluded.progress,
				max_progress = excluded.max_progress,
				is_completed = MAX(achievements.is_completed, excluded.is_completed),
				unlock_date = COALESCE(achievements.unlock_date, excluded.unlock_date),
				achievement_date = COALESCE(achievements.achievement_date, excluded.achievement_date),
				updated_at = excluded.updated_at`,
			a.ID, a.Progress, a.MaxProgress, boolToInt(a.IsCompleted),
			nullTimeString(a.UnlockDate), nullTimeString(a.AchievementDate), formatTime(a.UpdatedAt))
		if err != nil {
			return err
		}
		newlyAchieved = !before.Valid && a.AchievementDate != nil
		return nil
	})
	if err != nil {
		return false, s.writeErr(err, "upsert achievement")
	}
	return newlyAchieved, nil
}

// ListAchievements returns every stored row keyed by achievement id.
func (s *Store) ListAchievements(ctx context.Context) (map[string]domain.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT achievement_id, progress, max_progress, is_completed,
			unlock_date, achievement_date, updated_at
		FROM achievements`)
	if err != nil {
		return nil, s.readErr(err, "list achievements")
	}
	defer rows.Close()

	out := make(map[string]domain.Achievement)
	for rows.Next() {
		var (
			a           domain.Achievement
			isCompleted int
			unlock      sql.NullString
			achieved    sql.NullString
			updatedAt   string
		)
		if err := rows.Scan(&a.ID, &a.Progress, &a.MaxProgress, &isCompleted, &unlock, &achieved, &updatedAt); err != nil {
			return nil, s.readErr(err, "list achievements")
		}
		a.IsCompleted = isCompleted != 0
		if a.UnlockDate, err = parseNullableTime(unlock); err != nil {
			return nil, s.readErr(err, "list achievements")
		}
		if a.AchievementDate, err = parseNullableTime(achieved); err != nil {
			return nil, s.readErr(err, "list achievements")
		}
		if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, s.readErr(err, "list achievements")
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "list achievements")
	}
	return out, nil
}
