package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/readup/internal/domain"
)

func TestRecordMainCompletion_StreakAcrossDays(t *testing.T) {
	s, clock := newClockedStore(t)
	ctx := context.Background()

	steps := []struct {
		name        string
		advance     time.Duration
		wantCurrent int
		wantLongest int
		wantChanged bool
	}{
		{"first ever read", 0, 1, 1, true},
		{"same day again", 2 * time.Hour, 1, 1, false},
		{"next day", 24 * time.Hour, 2, 2, true},
		{"day after", 24 * time.Hour, 3, 3, true},
		{"three days later", 72 * time.Hour, 1, 3, true},
	}

	for _, step := range steps {
		clock.advance(step.advance)
		res, err := s.RecordMainCompletion(ctx, "S001", "", BookCheck{})
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if res.StreakChanged != step.wantChanged {
			t.Errorf("%s: changed = %v, want %v", step.name, res.StreakChanged, step.wantChanged)
		}
		if res.Streak.CurrentStreak != step.wantCurrent || res.Streak.LongestStreak != step.wantLongest {
			t.Errorf("%s: got %d/%d, want %d/%d", step.name,
				res.Streak.CurrentStreak, res.Streak.LongestStreak, step.wantCurrent, step.wantLongest)
		}
	}

	stored, err := s.GetStreakSummary(ctx)
	if err != nil {
		t.Fatalf("get streak: %v", err)
	}
	if stored.LastReadDate != domain.DateOf(clock.now(), time.UTC) {
		t.Errorf("last read date %s, want %s", stored.LastReadDate, domain.DateOf(clock.now(), time.UTC))
	}
}

func TestRecordMainCompletion_DailyActivityCounts(t *testing.T) {
	s, clock := newClockedStore(t)
	ctx := context.Background()
	day1 := domain.DateOf(clock.now(), time.UTC)

	for range 3 {
		if _, err := s.RecordMainCompletion(ctx, "S001", "", BookCheck{}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	clock.advance(24 * time.Hour)
	if _, err := s.RecordMainCompletion(ctx, "S002", "", BookCheck{}); err != nil {
		t.Fatalf("record: %v", err)
	}

	activity, err := s.GetDailyActivity(ctx, domain.Date{})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(activity) != 2 {
		t.Fatalf("expected 2 days, got %d", len(activity))
	}
	if activity[0].Date != day1 || activity[0].SegmentCount != 3 {
		t.Errorf("unexpected first day %+v", activity[0])
	}

	recent, err := s.GetDailyActivity(ctx, day1.AddDays(1))
	if err != nil {
		t.Fatalf("activity since: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("expected 1 day since %s, got %d", day1.AddDays(1), len(recent))
	}

	days, err := s.CountDaysRead(ctx)
	if err != nil {
		t.Fatalf("days read: %v", err)
	}
	if days != 2 {
		t.Errorf("expected 2 days read, got %d", days)
	}
}

func TestRecordMainCompletion_UsesReaderTimezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s, clock := newClockedStore(t)
	s.loc = tokyo
	ctx := context.Background()

	// 20:00 UTC is 05:00 the next morning in Tokyo.
	clock.t = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	res, err := s.RecordMainCompletion(ctx, "S001", "", BookCheck{})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := res.Completion.CompletedDate.String(); got != "2025-03-11" {
		t.Errorf("completed date %s, want 2025-03-11", got)
	}
}

func TestUpdateStreak_LongestNeverDecreases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := domain.NewDate(2025, 1, 1)

	if err := s.UpdateStreak(ctx, domain.StreakSummary{CurrentStreak: 5, LongestStreak: 9, LastReadDate: d}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateStreak(ctx, domain.StreakSummary{CurrentStreak: 1, LongestStreak: 1, LastReadDate: d.AddDays(4)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetStreakSummary(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LongestStreak != 9 || got.CurrentStreak != 1 {
		t.Errorf("got %d/%d, want 1/9", got.CurrentStreak, got.LongestStreak)
	}
}

func TestUpdateStreak_RejectsCurrentAboveLongest(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateStreak(context.Background(), domain.StreakSummary{CurrentStreak: 3, LongestStreak: 2})
	if err == nil {
		t.Fatal("expected check constraint failure")
	}
}

func TestRecordDailyActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := domain.NewDate(2025, 6, 1)

	for range 2 {
		if err := s.RecordDailyActivity(ctx, d); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	activity, err := s.GetDailyActivity(ctx, d)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(activity) != 1 || activity[0].SegmentCount != 2 {
		t.Errorf("unexpected activity %+v", activity)
	}
}
