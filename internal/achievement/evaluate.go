package achievement

import (
	"time"

	"github.com/listenupapp/readup/internal/domain"
)

// Trophy is the live evaluation of one catalog entry. The dates come from the
// durable achievement rows and are filled in by the caller.
type Trophy struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category,omitempty"`
	Progress        int        `json:"progress"`
	MaxProgress     int        `json:"max_progress"`
	IsCompleted     bool       `json:"is_completed"`
	UnlockDate      *time.Time `json:"unlock_date,omitempty"`
	AchievementDate *time.Time `json:"achievement_date,omitempty"`
}

// Evaluate scores every catalog entry against agg, in catalog order.
func (c *Catalog) Evaluate(agg domain.Aggregates) []Trophy {
	out := make([]Trophy, 0, len(c.entries))
	for _, e := range c.entries {
		progress, maxProgress := measure(e.Rule, agg)
		if progress > maxProgress {
			progress = maxProgress
		}
		out = append(out, Trophy{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Category:    e.Category,
			Progress:    progress,
			MaxProgress: maxProgress,
			IsCompleted: maxProgress > 0 && progress >= maxProgress,
		})
	}
	return out
}

// Evaluate scores agg against the default catalog.
func Evaluate(agg domain.Aggregates) []Trophy {
	return Default().Evaluate(agg)
}

// measure returns the raw progress of a rule and the value that completes it.
func measure(r Rule, agg domain.Aggregates) (int, int) {
	switch r.Kind {
	case RuleSegmentsCompleted:
		return agg.CompletedSegments, r.Target
	case RuleCurrentStreak:
		return agg.CurrentStreak, r.Target
	case RuleLongestStreak:
		return agg.LongestStreak, r.Target
	case RuleDaysRead:
		return agg.DaysRead, r.Target
	case RuleReadingMinutes:
		return agg.ReadingMinutes, r.Target
	case RulePlansCompleted:
		return agg.PlansCompleted, r.Target
	case RuleChallengesCompleted:
		return agg.ChallengesCompleted, r.Target
	case RuleEmojiCount:
		return agg.EmojiCounts[r.Emoji], r.Target
	case RuleEmojiCollection:
		target := r.Target
		if target == 0 {
			target = len(domain.EmojiKinds)
		}
		return len(agg.EmojiCounts.Collection().Collected), target
	case RuleColorCount:
		if r.Color != "" {
			return agg.ColorCounts[r.Color], r.Target
		}
		distinct := 0
		for _, n := range agg.ColorCounts {
			if n > 0 {
				distinct++
			}
		}
		return distinct, r.Target
	case RuleBookCompleted:
		if agg.CompletedBooks[r.Book] {
			return 1, 1
		}
		return 0, 1
	case RuleBooksCompleted:
		return len(agg.CompletedBooks), r.Target
	case RuleTestamentComplete:
		tp := agg.Testaments[domain.Testament(r.Testament)]
		if tp.Total == 0 {
			return 0, 1
		}
		return tp.Completed, tp.Total
	default:
		return 0, 1
	}
}
