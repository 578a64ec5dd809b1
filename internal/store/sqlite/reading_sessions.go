package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
)

// readingSessionColumns must match the scan order in scanReadingSession.
const readingSessionColumns = `id, segment_id, context, ref_id, started_at, ended_at, duration_ms`

func scanReadingSession(scanner interface{ Scan(dest ...any) error }) (*domain.ReadingSession, error) {
	var (
		rs        domain.ReadingSession
		kind      string
		refID     sql.NullString
		startedAt string
		endedAt   sql.NullString
	)
	if err := scanner.Scan(&rs.ID, &rs.SegmentID, &kind, &refID, &startedAt, &endedAt, &rs.DurationMs); err != nil {
		return nil, err
	}

	var err error
	if rs.Context, err = domain.ParseCompletionContext(kind, refID.String); err != nil {
		return nil, err
	}
	if rs.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if rs.EndedAt, err = parseNullableTime(endedAt); err != nil {
		return nil, err
	}
	return &rs, nil
}

// StartReadingSession inserts an open session.
func (s *Store) StartReadingSession(ctx context.Context, rs *domain.ReadingSession) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reading_sessions (`+readingSessionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rs.ID, rs.SegmentID, string(rs.Context.Kind()), nullString(rs.Context.RefID()),
			formatTime(rs.StartedAt), nullTimeString(rs.EndedAt), rs.DurationMs)
		return err
	})
	if err != nil {
		return s.writeErr(err, "start reading session")
	}
	return nil
}

// GetReadingSession loads a session by id.
func (s *Store) GetReadingSession(ctx context.Context, sessionID string) (*domain.ReadingSession, error) {
	rs, err := scanReadingSession(s.db.QueryRowContext(ctx, `
		SELECT `+readingSessionColumns+` FROM reading_sessions WHERE id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("reading session %s not found", sessionID)
	}
	if err != nil {
		return nil, s.readErr(err, "get reading session")
	}
	return rs, nil
}

// EndReadingSession closes a session at now. Ending an already ended session
// returns it unchanged.
func (s *Store) EndReadingSession(ctx context.Context, sessionID string, now time.Time) (*domain.ReadingSession, error) {
	var out *domain.ReadingSession
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rs, err := scanReadingSession(tx.QueryRowContext(ctx, `
			SELECT `+readingSessionColumns+` FROM reading_sessions WHERE id = ?`, sessionID))
		if errors.Is(err, sql.ErrNoRows) {
			return domainerrors.NotFoundf("reading session %s not found", sessionID)
		}
		if err != nil {
			return err
		}
		out = rs
		if !rs.IsActive() {
			return nil
		}

		rs.End(now)
		_, err = tx.ExecContext(ctx, `
			UPDATE reading_sessions SET ended_at = ?, duration_ms = ? WHERE id = ?`,
			nullTimeString(rs.EndedAt), rs.DurationMs, rs.ID)
		return err
	})
	if err != nil {
		return nil, s.writeErr(err, "end reading session")
	}
	return out, nil
}

// CloseStaleSessions ends every open session started before cutoff with zero
// duration. Returns the number closed.
func (s *Store) CloseStaleSessions(ctx context.Context, cutoff time.Time) (int, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE reading_sessions SET ended_at = started_at, duration_ms = 0
			WHERE ended_at IS NULL AND started_at < ?`, formatTime(cutoff))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, s.writeErr(err, "close stale sessions")
	}
	return int(n), nil
}

// TotalReadingTime sums the duration of ended sessions.
func (s *Store) TotalReadingTime(ctx context.Context) (int64, error) {
	var ms int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(duration_ms), 0) FROM reading_sessions`).Scan(&ms); err != nil {
		return 0, s.readErr(err, "total reading time")
	}
	return ms, nil
}
