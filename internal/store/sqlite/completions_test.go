package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/readup/internal/domain"
)

var (
	mainCtx = domain.MainContext()
	planCtx = domain.PlanContext("chronological")
)

func TestRecordCompletion_ThenQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	contexts := []domain.CompletionContext{
		domain.MainContext(),
		domain.PlanContext("chronological"),
		domain.ChallengeContext("AdventJourney"),
	}
	for _, cc := range contexts {
		t.Run(cc.String(), func(t *testing.T) {
			status, err := s.QueryCompletion(ctx, "S001", cc)
			if err != nil {
				t.Fatalf("query before: %v", err)
			}
			if status.IsCompleted {
				t.Fatal("segment complete before any write")
			}

			if _, err := s.RecordCompletion(ctx, "S001", cc, "red"); err != nil {
				t.Fatalf("record: %v", err)
			}

			status, err = s.QueryCompletion(ctx, "S001", cc)
			if err != nil {
				t.Fatalf("query after: %v", err)
			}
			if !status.IsCompleted {
				t.Fatal("expected completed")
			}
			if status.Color == nil || *status.Color != "red" {
				t.Errorf("expected color red, got %v", status.Color)
			}
		})
	}
}

func TestQueryCompletion_ContextsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordCompletion(ctx, "S001", domain.PlanContext("a"), ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	for _, cc := range []domain.CompletionContext{mainCtx, domain.PlanContext("b"), domain.ChallengeContext("a")} {
		status, err := s.QueryCompletion(ctx, "S001", cc)
		if err != nil {
			t.Fatalf("query %s: %v", cc, err)
		}
		if status.IsCompleted {
			t.Errorf("%s should not see a completion recorded in plan:a", cc)
		}
	}
}

func TestRereadsAppendRowsAndLatestColorWins(t *testing.T) {
	s, clock := newClockedStore(t)
	ctx := context.Background()

	if _, err := s.RecordMainCompletion(ctx, "S001", "blue", BookCheck{}); err != nil {
		t.Fatalf("first read: %v", err)
	}
	clock.advance(time.Hour)
	if _, err := s.RecordMainCompletion(ctx, "S001", "green", BookCheck{}); err != nil {
		t.Fatalf("second read: %v", err)
	}

	rows, err := s.ListCompletions(ctx, "S001")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(rows))
	}

	n, err := s.CountCompletedMain(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 distinct segment, got %d", n)
	}

	status, err := s.QueryCompletion(ctx, "S001", mainCtx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if status.Color == nil || *status.Color != "green" {
		t.Errorf("expected latest color green, got %v", status.Color)
	}

	marks, err := s.CompletedMainSegments(ctx)
	if err != nil {
		t.Fatalf("marks: %v", err)
	}
	if marks["S001"].Color != "green" {
		t.Errorf("mirror view should carry latest color, got %q", marks["S001"].Color)
	}
}

func TestContextCheckConstraint(t *testing.T) {
	s := newTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO segment_completions (id, segment_id, context, plan_id, challenge_id,
			reader_color, completed_at, completed_date)
		VALUES ('x', 'S001', 'plan', NULL, 'c', NULL, '2025-01-01T00:00:00.000000000Z', '2025-01-01')`)
	if err == nil {
		t.Fatal("plan row with a challenge id must be rejected")
	}
}

func TestCompletedInContext_SinceRunStart(t *testing.T) {
	s, clock := newClockedStore(t)
	ctx := context.Background()
	cc := domain.ChallengeContext("AdventJourney")

	if _, err := s.RecordCompletion(ctx, "S010", cc, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	clock.advance(time.Hour)
	restart := clock.now()
	clock.advance(time.Minute)
	for _, seg := range []string{"S011", "S010", "S011"} {
		if _, err := s.RecordCompletion(ctx, seg, cc, ""); err != nil {
			t.Fatalf("record %s: %v", seg, err)
		}
		clock.advance(time.Minute)
	}

	got, err := s.CompletedInContext(ctx, cc, restart)
	if err != nil {
		t.Fatalf("completed in context: %v", err)
	}
	if len(got) != 2 || got[0] != "S011" || got[1] != "S010" {
		t.Errorf("expected [S011 S010], got %v", got)
	}

	all, err := s.CompletedInContext(ctx, cc, time.Time{})
	if err != nil {
		t.Fatalf("completed in context: %v", err)
	}
	if len(all) != 2 || all[0] != "S010" {
		t.Errorf("expected S010 first over full history, got %v", all)
	}
}

func TestCountBySourceAndColor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	writes := []struct {
		seg   string
		cc    domain.CompletionContext
		color string
	}{
		{"S001", mainCtx, "red"},
		{"S001", mainCtx, "red"},
		{"S002", mainCtx, "blue"},
		{"S001", domain.PlanContext("p"), "red"},
		{"S003", domain.ChallengeContext("c"), ""},
	}
	for _, w := range writes {
		if _, err := s.RecordCompletion(ctx, w.seg, w.cc, w.color); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	src, err := s.CountBySource(ctx)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if src != (domain.SourceStats{Main: 2, Plan: 1, Challenge: 1}) {
		t.Errorf("unexpected source stats %+v", src)
	}

	colors, err := s.CountByColor(ctx)
	if err != nil {
		t.Fatalf("color: %v", err)
	}
	if colors["red"] != 1 || colors["blue"] != 1 || len(colors) != 2 {
		t.Errorf("unexpected color counts %v", colors)
	}
}

func TestCountByTestament(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, seg := range []string{"S001", "S002", "S010", "S999"} {
		if _, err := s.RecordCompletion(ctx, seg, mainCtx, ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := s.RecordCompletion(ctx, "S011", domain.PlanContext("p"), ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	classify := func(seg string) (domain.Testament, bool) {
		switch seg {
		case "S001", "S002":
			return domain.OldTestament, true
		case "S010", "S011":
			return domain.NewTestament, true
		}
		return "", false
	}

	counts, err := s.CountByTestament(ctx, classify)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.OldTestament] != 2 || counts[domain.NewTestament] != 1 {
		t.Errorf("unexpected testament counts %v", counts)
	}
}
