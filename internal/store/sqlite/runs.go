package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/id"
)

// RecordRunStarted records the start of a plan or challenge run. Recording
// the same start twice is a no-op.
func (s *Store) RecordRunStarted(ctx context.Context, kind domain.RunKind, refID string, startedAt time.Time) error {
	runID, err := id.Generate(id.PrefixRun)
	if err != nil {
		return s.writeErr(err, "record run start")
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO progress_runs (id, kind, ref_id, date_started, completed_at)
			VALUES (?, ?, ?, ?, NULL)
			ON CONFLICT(kind, ref_id, date_started) DO NOTHING`,
			runID, string(kind), refID, formatTime(startedAt))
		return err
	})
	if err != nil {
		return s.writeErr(err, "record run start")
	}
	return nil
}

// RecordRunCompleted stamps the run that started at startedAt as completed.
// A run whose start was never recorded is inserted already completed.
func (s *Store) RecordRunCompleted(ctx context.Context, kind domain.RunKind, refID string, startedAt, completedAt time.Time) error {
	runID, err := id.Generate(id.PrefixRun)
	if err != nil {
		return s.writeErr(err, "record run completion")
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO progress_runs (id, kind, ref_id, date_started, completed_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(kind, ref_id, date_started) DO UPDATE SET
				completed_at = COALESCE(progress_runs.completed_at, excluded.completed_at)`,
			runID, string(kind), refID, formatTime(startedAt), formatTime(completedAt))
		return err
	})
	if err != nil {
		return s.writeErr(err, "record run completion")
	}
	return nil
}

// ListRuns returns every recorded run of a kind, oldest first.
func (s *Store) ListRuns(ctx context.Context, kind domain.RunKind) ([]domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, ref_id, date_started, completed_at FROM progress_runs
		WHERE kind = ? ORDER BY date_started, id`, string(kind))
	if err != nil {
		return nil, s.readErr(err, "list runs")
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var (
			r           domain.RunRecord
			k           string
			started     string
			completedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &k, &r.RefID, &started, &completedAt); err != nil {
			return nil, s.readErr(err, "list runs")
		}
		r.Kind = domain.RunKind(k)
		if r.DateStarted, err = parseTime(started); err != nil {
			return nil, s.readErr(err, "list runs")
		}
		if r.CompletedAt, err = parseNullableTime(completedAt); err != nil {
			return nil, s.readErr(err, "list runs")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "list runs")
	}
	return out, nil
}

// CountCompletedRuns counts distinct plans or challenges completed at least once.
func (s *Store) CountCompletedRuns(ctx context.Context, kind domain.RunKind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT ref_id) FROM progress_runs
		WHERE kind = ? AND completed_at IS NOT NULL`, string(kind)).Scan(&n)
	if err != nil {
		return 0, s.readErr(err, "count completed runs")
	}
	return n, nil
}
