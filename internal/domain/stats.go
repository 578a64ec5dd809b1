package domain

import "time"

// StreakSummary is the singleton streak record.
type StreakSummary struct {
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	LastReadDate  Date      `json:"last_read_date"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// Valid reports whether the summary is internally consistent.
func (s StreakSummary) Valid() bool {
	return s.CurrentStreak >= 0 && s.CurrentStreak <= s.LongestStreak
}

// DailyActivity counts main-context completions on one calendar date.
type DailyActivity struct {
	Date         Date `json:"date"`
	SegmentCount int  `json:"segment_count"`
}

// StreakDay represents a single day in the streak calendar.
type StreakDay struct {
	Date         Date `json:"date"`
	HasRead      bool `json:"has_read"`
	SegmentCount int  `json:"segment_count"`
	Intensity    int  `json:"intensity"` // 0-4 for visual gradient (0=none, 4=max)
}

// TestamentProgress is completion of one half of the corpus.
type TestamentProgress struct {
	Testament Testament `json:"testament"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Percent   float64   `json:"percent"` // 0-100
}

// Complete reports whether every segment of the testament is done.
func (p TestamentProgress) Complete() bool {
	return p.Total > 0 && p.Completed >= p.Total
}

// NewTestamentProgress builds a progress value with its percentage.
func NewTestamentProgress(t Testament, completed, total int) TestamentProgress {
	p := TestamentProgress{Testament: t, Completed: completed, Total: total}
	if total > 0 {
		p.Percent = float64(completed) * 100 / float64(total)
	}
	return p
}

// SourceStats counts ledger rows by context kind.
type SourceStats struct {
	Main      int `json:"main"`
	Plan      int `json:"plan"`
	Challenge int `json:"challenge"`
}

// Total returns the sum across contexts.
func (s SourceStats) Total() int { return s.Main + s.Plan + s.Challenge }

// ReadingStats is the headline numbers shown on the stats screen.
type ReadingStats struct {
	CompletedSegments int               `json:"completed_segments"`
	CurrentStreak     int               `json:"current_streak"`
	LongestStreak     int               `json:"longest_streak"`
	LastReadDate      Date              `json:"last_read_date"`
	DaysRead          int               `json:"days_read"`
	ReadingTimeMs     int64             `json:"reading_time_ms"`
	Sources           SourceStats       `json:"sources"`
	OldTestament      TestamentProgress `json:"old_testament"`
	NewTestament      TestamentProgress `json:"new_testament"`
	CompletedBooks    []BookCompletion  `json:"completed_books"`
	Emoji             EmojiStats        `json:"emoji"`
	Colors            map[string]int    `json:"colors"`
}

// Aggregates are the counters the achievement rules evaluate.
type Aggregates struct {
	CompletedSegments   int
	CurrentStreak       int
	LongestStreak       int
	DaysRead            int
	ReadingMinutes      int
	EmojiCounts         EmojiStats
	ColorCounts         map[string]int
	CompletedBooks      map[string]bool
	Testaments          map[Testament]TestamentProgress
	PlansCompleted      int
	ChallengesCompleted int
}
