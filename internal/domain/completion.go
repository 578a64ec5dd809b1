// Package domain contains the core entities of the progress engine: completions,
// contexts, calendar dates, streaks, runs and reactions.
package domain

import "time"

// SegmentCompletion is one ledger row. A segment may be completed many times in
// the same context; every read is kept.
type SegmentCompletion struct {
	ID            string            `json:"id"`
	SegmentID     string            `json:"segment_id"`
	Context       CompletionContext `json:"context"`
	ReaderColor   string            `json:"reader_color,omitempty"`
	CompletedAt   time.Time         `json:"completed_at"`
	CompletedDate Date              `json:"completed_date"`
}

// CompletionStatus answers "is segment X complete in context Y".
type CompletionStatus struct {
	IsCompleted bool    `json:"is_completed"`
	Color       *string `json:"color"`
}

// MainMark is the session-state mirror entry for a main-context completion.
type MainMark struct {
	SegmentID   string    `json:"segment_id"`
	Color       string    `json:"color,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// LastRead records the most recently visited segment.
type LastRead struct {
	SegmentID string    `json:"segment_id"`
	Context   string    `json:"context"`
	At        time.Time `json:"at"`
}

// Testament splits the corpus in two.
type Testament string

// Testaments.
const (
	OldTestament Testament = "old"
	NewTestament Testament = "new"
)

// BookCompletion is the durable, monotonic "book finished" flag.
type BookCompletion struct {
	BookCode    string    `json:"book_code"`
	CompletedAt time.Time `json:"completed_at"`
}

// MainCompletionResult reports what a main-context completion changed.
type MainCompletionResult struct {
	Completion      SegmentCompletion `json:"completion"`
	Streak          StreakSummary     `json:"streak"`
	StreakChanged   bool              `json:"streak_changed"`
	BookCode        string            `json:"book_code,omitempty"`
	BookCompleted   bool              `json:"book_completed"`
	BookNewlyMarked bool              `json:"book_newly_marked"`
}

// RunRecord is the ledger's copy of a plan or challenge run.
type RunRecord struct {
	ID          string     `json:"id"`
	Kind        RunKind    `json:"kind"`
	RefID       string     `json:"ref_id"`
	DateStarted time.Time  `json:"date_started"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
