// Package streak holds the pure day-arithmetic behind reading streaks.
// Nothing here touches storage; callers load the summary, apply, and persist.
package streak

import (
	"slices"

	"github.com/listenupapp/readup/internal/domain"
)

// CalendarDays is the default calendar window: 12 weeks.
const CalendarDays = 84

// Apply advances the streak for activity on today.
//
// A nil summary is a first-ever activity and yields a streak of 1. Activity on
// the day already counted is a no-op (changed is false). The next calendar day
// extends the streak; any larger gap starts a new streak of 1. Longest never
// decreases. A today earlier than the last read date is treated as already
// counted, so a clock moved backwards cannot reset the streak.
func Apply(summary *domain.StreakSummary, today domain.Date) (domain.StreakSummary, bool) {
	if summary == nil || summary.LastReadDate.IsZero() {
		next := domain.StreakSummary{CurrentStreak: 1, LongestStreak: 1, LastReadDate: today}
		if summary != nil && summary.LongestStreak > 1 {
			next.LongestStreak = summary.LongestStreak
		}
		return next, true
	}

	next := *summary
	diff := domain.DaysBetween(summary.LastReadDate, today)
	switch {
	case diff <= 0:
		return next, false
	case diff == 1:
		next.CurrentStreak++
	default:
		next.CurrentStreak = 1
	}
	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
	next.LastReadDate = today
	return next, true
}

// Effective returns the streak to show on today. The stored current streak is
// only updated on activity, so once a whole day has passed without reading it
// is stale and the visible streak is 0.
func Effective(summary domain.StreakSummary, today domain.Date) int {
	if summary.LastReadDate.IsZero() {
		return 0
	}
	if domain.DaysBetween(summary.LastReadDate, today) > 1 {
		return 0
	}
	return summary.CurrentStreak
}

// FromHistory rebuilds a summary from the set of days with activity.
// Used to check a stored summary against the daily activity table.
func FromHistory(days []domain.Date) domain.StreakSummary {
	if len(days) == 0 {
		return domain.StreakSummary{}
	}
	sorted := slices.Clone(days)
	slices.SortFunc(sorted, func(a, b domain.Date) int {
		return domain.DaysBetween(b, a)
	})
	sorted = slices.Compact(sorted)

	var s *domain.StreakSummary
	for _, d := range sorted {
		next, _ := Apply(s, d)
		s = &next
	}
	return *s
}

// Calendar returns the last n days ending today, oldest first, with an
// intensity of 0 to 4 relative to the busiest day in the window.
func Calendar(activity []domain.DailyActivity, today domain.Date, n int) []domain.StreakDay {
	if n <= 0 {
		n = CalendarDays
	}

	counts := make(map[domain.Date]int, len(activity))
	for _, a := range activity {
		counts[a.Date] += a.SegmentCount
	}

	start := today.AddDays(-(n - 1))
	maxCount := 0
	for i := range n {
		maxCount = max(maxCount, counts[start.AddDays(i)])
	}

	calendar := make([]domain.StreakDay, 0, n)
	for i := range n {
		date := start.AddDays(i)
		count := counts[date]

		intensity := 0
		if count > 0 && maxCount > 0 {
			// Scale to 1-4 based on relative reading
			ratio := float64(count) / float64(maxCount)
			intensity = min(int(ratio*3)+1, 4)
		}

		calendar = append(calendar, domain.StreakDay{
			Date:         date,
			HasRead:      count > 0,
			SegmentCount: count,
			Intensity:    intensity,
		})
	}
	return calendar
}
