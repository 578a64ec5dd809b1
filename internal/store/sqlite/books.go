package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/listenupapp/readup/internal/domain"
)

// CheckBookCompletion returns whether the book is complete, setting the durable
// flag the first time every required segment has a main-context completion.
// Once set, the flag is never cleared and later calls do not rescan.
func (s *Store) CheckBookCompletion(ctx context.Context, book BookCheck) (bool, error) {
	var complete bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		complete, _, err = checkBook(ctx, tx, book, s.now())
		return err
	})
	if err != nil {
		return false, s.writeErr(err, "check book completion")
	}
	return complete, nil
}

type txQuerier interface {
	execer
	queryRower
}

func checkBook(ctx context.Context, tx txQuerier, book BookCheck, at time.Time) (complete, newly bool, err error) {
	done, err := bookFlagged(ctx, tx, book.Code)
	if err != nil || done {
		return done, false, err
	}
	if len(book.Segments) == 0 {
		return false, false, nil
	}

	args := make([]any, len(book.Segments))
	for i, segID := range book.Segments {
		args[i] = segID
	}
	var n int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT segment_id) FROM segment_completions
		WHERE context = 'main' AND segment_id IN (`+placeholders(len(args))+`)`,
		args...).Scan(&n)
	if err != nil {
		return false, false, err
	}
	if n < len(book.Segments) {
		return false, false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO book_completions (book_code, completed_at) VALUES (?, ?)`,
		book.Code, formatTime(at)); err != nil {
		return false, false, err
	}
	return true, true, nil
}

func bookFlagged(ctx context.Context, q queryRower, code string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM book_completions WHERE book_code = ?`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// MarkBookComplete sets the durable flag. Returns false when it was already set.
func (s *Store) MarkBookComplete(ctx context.Context, code string, at time.Time) (bool, error) {
	var newly bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO book_completions (book_code, completed_at) VALUES (?, ?)`,
			code, formatTime(at))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		newly = n > 0
		return err
	})
	if err != nil {
		return false, s.writeErr(err, "mark book complete")
	}
	return newly, nil
}

// IsBookComplete reads the durable flag only.
func (s *Store) IsBookComplete(ctx context.Context, code string) (bool, error) {
	done, err := bookFlagged(ctx, s.db, code)
	if err != nil {
		return false, s.readErr(err, "read book flag")
	}
	return done, nil
}

// CompletedBooks lists flagged books in completion order.
func (s *Store) CompletedBooks(ctx context.Context) ([]domain.BookCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_code, completed_at FROM book_completions
		ORDER BY completed_at, book_code`)
	if err != nil {
		return nil, s.readErr(err, "list completed books")
	}
	defer rows.Close()

	out := []domain.BookCompletion{}
	for rows.Next() {
		var (
			b  domain.BookCompletion
			at string
		)
		if err := rows.Scan(&b.BookCode, &at); err != nil {
			return nil, s.readErr(err, "list completed books")
		}
		if b.CompletedAt, err = parseTime(at); err != nil {
			return nil, s.readErr(err, "list completed books")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr(err, "list completed books")
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
