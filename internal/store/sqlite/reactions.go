package sqlite

import (
	"context"
	"database/sql"

	"github.com/listenupapp/readup/internal/domain"
)

// SetReaction stores a reaction. The emoji must already be normalized and
// named. Returns false when the block already carries that emoji; the
// existing row is kept.
func (s *Store) SetReaction(ctx context.Context, r domain.Reaction) (bool, error) {
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO emoji_reactions (id, segment_id, block_id, emoji, name, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(block_id, emoji) DO NOTHING`,
			r.ID, r.SegmentID, r.BlockID, r.Emoji, r.Name, formatTime(r.CreatedAt))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		created = n > 0
		return err
	})
	if err != nil {
		return false, s.writeErr(err, "set reaction")
	}
	return created, nil
}

// RemoveReaction deletes a reaction. Returns false when there was none.
func (s *Store) RemoveReaction(ctx context.Context, blockID, emoji string) (bool, error) {
	var removed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM emoji_reactions WHERE block_id = ? AND emoji = ?`, blockID, emoji)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	if err != nil {
		return false, s.writeErr(err, "remove reaction")
	}
	return removed, nil
}

// ListReactions returns the reactions on a segment's blocks.
func (s *Store) ListReactions(ctx context.Context, segmentID string) ([]domain.Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, segment_id, block_id, emoji, name, created_at
		FROM emoji_reactions WHERE segment_id = ?
		ORDER BY created_at, rowid`, segmentID)
	if err != nil {
		return nil, s.readErr(err, "list reactions")
	}
	defer rows.Close()

	out := []domain.Reaction{}
	for rows.Next() {
		var (
			r  domain.Reaction
			at string
		)
		if err := rows.Scan(&r.ID, &r.SegmentID, &r.BlockID, &r.Emoji, &r.Name, &at); err != nil {
			return nil, s.readErr(err, "list reactions")
		}
		if r.CreatedAt, err = parseTime(at); err != nil {
			return nil, s.readErr(err, "list reactions")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "list reactions")
	}
	return out, nil
}

// CountByEmoji counts reactions per palette name. Every palette entry is
// present, zero when unused.
func (s *Store) CountByEmoji(ctx context.Context) (domain.EmojiStats, error) {
	counts, err := s.countGrouped(ctx, "count by emoji", `
		SELECT name, COUNT(*) FROM emoji_reactions GROUP BY name`)
	if err != nil {
		return nil, err
	}
	stats := domain.NewEmojiStats()
	for name, n := range counts {
		stats[name] = n
	}
	return stats, nil
}
