// Package sqlite is the durable ledger: an embedded SQLite database holding the
// append-only history of completions and the aggregates derived from it.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/metrics"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for the ledger.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time

	// writeMu serializes multi-statement write transactions so that two
	// completions on the same day cannot both see the streak as unapplied.
	writeMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone used to derive calendar dates. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source. Tests use it to cross day boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates or opens the ledger at the given path.
// It configures WAL mode, sets pragmas, and runs the idempotent schema, which
// also seeds the streak summary. The returned store is fully initialized;
// every failure is a PERSISTENCE_INIT error.
func Open(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	q.Add("_pragma", "busy_timeout(5000)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, domainerrors.PersistenceInit(err, "open ledger")
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, domainerrors.PersistenceInit(err, "open ledger")
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, domainerrors.PersistenceInit(fmt.Errorf("exec schema: %w", err), "migrate ledger")
	}

	s := &Store{
		db:     db,
		logger: logger,
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the ledger is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.readErr(err, "ping ledger")
	}
	return nil
}

// Location returns the zone calendar dates are computed in.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Now returns the ledger clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Today returns the current calendar date in the ledger's zone.
func (s *Store) Today() domain.Date {
	return domain.DateOf(s.now(), s.loc)
}

// withTx runs fn in a serialized write transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// writeErr wraps a failed write as PERSISTENCE_WRITE. Coded errors pass through.
func (s *Store) writeErr(err error, op string) error {
	var coded *domainerrors.Error
	if domainerrors.As(err, &coded) {
		return err
	}
	metrics.PersistenceError(metrics.TierLedger, op)
	s.logger.Error("ledger write failed", "op", op, "error", err)
	return domainerrors.PersistenceWrite(err, op)
}

// readErr wraps a failed read as PERSISTENCE_READ.
func (s *Store) readErr(err error, op string) error {
	var coded *domainerrors.Error
	if domainerrors.As(err, &coded) {
		return err
	}
	metrics.PersistenceError(metrics.TierLedger, op)
	return domainerrors.PersistenceRead(err, op)
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString returns a sql.NullString from a string, NULL when empty.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
