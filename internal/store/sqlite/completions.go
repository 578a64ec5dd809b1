package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/id"
	"github.com/listenupapp/readup/internal/metrics"
)

// completionColumns must match the scan order in scanCompletion.
const completionColumns = `id, segment_id, context, plan_id, challenge_id,
	reader_color, completed_at, completed_date`

func scanCompletion(scanner interface{ Scan(dest ...any) error }) (domain.SegmentCompletion, error) {
	var (
		c           domain.SegmentCompletion
		kind        string
		planID      sql.NullString
		challengeID sql.NullString
		color       sql.NullString
		completedAt string
		date        string
	)
	if err := scanner.Scan(&c.ID, &c.SegmentID, &kind, &planID, &challengeID, &color, &completedAt, &date); err != nil {
		return c, err
	}

	ref := planID.String
	if challengeID.Valid {
		ref = challengeID.String
	}
	var err error
	if c.Context, err = domain.ParseCompletionContext(kind, ref); err != nil {
		return c, err
	}
	c.ReaderColor = color.String
	if c.CompletedAt, err = parseTime(completedAt); err != nil {
		return c, err
	}
	if c.CompletedDate, err = domain.ParseDate(date); err != nil {
		return c, err
	}
	return c, nil
}

// contextColumns splits a context into its stored kind, plan_id and challenge_id.
func contextColumns(cc domain.CompletionContext) (string, sql.NullString, sql.NullString) {
	planID, _ := cc.PlanID()
	challengeID, _ := cc.ChallengeID()
	return string(cc.Kind()), nullString(planID), nullString(challengeID)
}

func (s *Store) newCompletion(segmentID string, cc domain.CompletionContext, color string) (domain.SegmentCompletion, error) {
	cid, err := id.Generate(id.PrefixCompletion)
	if err != nil {
		return domain.SegmentCompletion{}, err
	}
	now := s.now()
	return domain.SegmentCompletion{
		ID:            cid,
		SegmentID:     segmentID,
		Context:       cc,
		ReaderColor:   color,
		CompletedAt:   now,
		CompletedDate: domain.DateOf(now, s.loc),
	}, nil
}

func insertCompletion(ctx context.Context, exec execer, c domain.SegmentCompletion) error {
	kind, planID, challengeID := contextColumns(c.Context)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO segment_completions (`+completionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SegmentID, kind, planID, challengeID,
		nullString(c.ReaderColor), formatTime(c.CompletedAt), c.CompletedDate.String(),
	)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RecordCompletion appends a completion row. It is durable when it returns.
// For main-context reads use RecordMainCompletion, which also maintains the
// daily activity, streak and book flags.
func (s *Store) RecordCompletion(ctx context.Context, segmentID string, cc domain.CompletionContext, color string) (domain.SegmentCompletion, error) {
	c, err := s.newCompletion(segmentID, cc, color)
	if err != nil {
		return c, s.writeErr(err, "record completion")
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return insertCompletion(ctx, tx, c)
	})
	if err != nil {
		return c, s.writeErr(err, "record completion")
	}

	metrics.Completions.WithLabelValues(string(cc.Kind())).Inc()
	return c, nil
}

// QueryCompletion reports whether at least one row exists for the segment in
// the context, with the reader color of the most recent one.
func (s *Store) QueryCompletion(ctx context.Context, segmentID string, cc domain.CompletionContext) (domain.CompletionStatus, error) {
	kind, planID, challengeID := contextColumns(cc)

	var color sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT reader_color FROM segment_completions
		WHERE segment_id = ? AND context = ?
			AND COALESCE(plan_id, '') = COALESCE(?, '')
			AND COALESCE(challenge_id, '') = COALESCE(?, '')
		ORDER BY completed_at DESC, rowid DESC
		LIMIT 1`,
		segmentID, kind, planID, challengeID,
	).Scan(&color)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CompletionStatus{}, nil
	}
	if err != nil {
		return domain.CompletionStatus{}, s.readErr(err, "query completion")
	}

	status := domain.CompletionStatus{IsCompleted: true}
	if color.Valid {
		c := color.String
		status.Color = &c
	}
	return status, nil
}

// ListCompletions returns every row for a segment, oldest first.
func (s *Store) ListCompletions(ctx context.Context, segmentID string) ([]domain.SegmentCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+completionColumns+` FROM segment_completions
		WHERE segment_id = ?
		ORDER BY completed_at, rowid`, segmentID)
	if err != nil {
		return nil, s.readErr(err, "list completions")
	}
	defer rows.Close()

	var out []domain.SegmentCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, s.readErr(err, "list completions")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "list completions")
	}
	return out, nil
}

// CountCompletedMain returns the number of distinct segments completed in the
// main context.
func (s *Store) CountCompletedMain(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT segment_id) FROM segment_completions
		WHERE context = 'main'`).Scan(&n)
	if err != nil {
		return 0, s.readErr(err, "count main completions")
	}
	return n, nil
}

// CompletedMainSegments returns one mark per segment completed in the main
// context, carrying the color and time of its latest completion. This is the
// ledger's view of the session-state mirror.
func (s *Store) CompletedMainSegments(ctx context.Context) (map[string]domain.MainMark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT segment_id, reader_color, completed_at FROM segment_completions
		WHERE context = 'main'
		ORDER BY completed_at, rowid`)
	if err != nil {
		return nil, s.readErr(err, "list main completions")
	}
	defer rows.Close()

	marks := make(map[string]domain.MainMark)
	for rows.Next() {
		var (
			segmentID   string
			color       sql.NullString
			completedAt string
		)
		if err := rows.Scan(&segmentID, &color, &completedAt); err != nil {
			return nil, s.readErr(err, "list main completions")
		}
		at, err := parseTime(completedAt)
		if err != nil {
			return nil, s.readErr(err, "list main completions")
		}
		marks[segmentID] = domain.MainMark{SegmentID: segmentID, Color: color.String, CompletedAt: at}
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "list main completions")
	}
	return marks, nil
}

// CompletedInContext returns the distinct segments completed in a plan or
// challenge context since the given start time, in first-completion order.
func (s *Store) CompletedInContext(ctx context.Context, cc domain.CompletionContext, since time.Time) ([]string, error) {
	kind, planID, challengeID := contextColumns(cc)
	rows, err := s.db.QueryContext(ctx, `
		SELECT segment_id FROM segment_completions
		WHERE context = ?
			AND COALESCE(plan_id, '') = COALESCE(?, '')
			AND COALESCE(challenge_id, '') = COALESCE(?, '')
			AND completed_at >= ?
		GROUP BY segment_id
		ORDER BY MIN(completed_at), MIN(rowid)`,
		kind, planID, challengeID, formatTime(since))
	if err != nil {
		return nil, s.readErr(err, "list run completions")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var segmentID string
		if err := rows.Scan(&segmentID); err != nil {
			return nil, s.readErr(err, "list run completions")
		}
		out = append(out, segmentID)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "list run completions")
	}
	return out, nil
}

// CountByColor counts distinct completed segments per reader color.
func (s *Store) CountByColor(ctx context.Context) (map[string]int, error) {
	return s.countGrouped(ctx, "count by color", `
		SELECT reader_color, COUNT(DISTINCT segment_id) FROM segment_completions
		WHERE reader_color IS NOT NULL
		GROUP BY reader_color`)
}

// CountBySource counts distinct completed segments per context kind.
func (s *Store) CountBySource(ctx context.Context) (domain.SourceStats, error) {
	counts, err := s.countGrouped(ctx, "count by source", `
		SELECT context, COUNT(DISTINCT segment_id) FROM segment_completions
		GROUP BY context`)
	if err != nil {
		return domain.SourceStats{}, err
	}
	return domain.SourceStats{
		Main:      counts[string(domain.ContextMain)],
		Plan:      counts[string(domain.ContextPlan)],
		Challenge: counts[string(domain.ContextChallenge)],
	}, nil
}

// CountByTestament counts distinct main-context segments per testament using
// the given classifier. Segments the classifier rejects are skipped.
func (s *Store) CountByTestament(ctx context.Context, classify func(segmentID string) (domain.Testament, bool)) (map[domain.Testament]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT segment_id FROM segment_completions WHERE context = 'main'`)
	if err != nil {
		return nil, s.readErr(err, "count by testament")
	}
	defer rows.Close()

	counts := map[domain.Testament]int{domain.OldTestament: 0, domain.NewTestament: 0}
	for rows.Next() {
		var segmentID string
		if err := rows.Scan(&segmentID); err != nil {
			return nil, s.readErr(err, "count by testament")
		}
		if t, ok := classify(segmentID); ok {
			counts[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "count by testament")
	}
	return counts, nil
}

func (s *Store) countGrouped(ctx context.Context, op, query string, args ...any) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.readErr(err, op)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, s.readErr(err, op)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, op)
	}
	return counts, nil
}
