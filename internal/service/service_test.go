package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/corpus/corpustest"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/listenupapp/readup/internal/state"
	"github.com/listenupapp/readup/internal/store"
	"github.com/listenupapp/readup/internal/store/sqlite"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// recorder captures emitted events.
type recorder struct {
	events []sse.Event
}

func (r *recorder) Emit(e any) {
	if evt, ok := e.(sse.Event); ok {
		r.events = append(r.events, evt)
	}
}

func (r *recorder) count(t sse.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type testEnv struct {
	ledger       *sqlite.Store
	kv           *store.Store
	state        *state.Manager
	holder       *corpus.Holder
	events       *recorder
	clock        *testClock
	stats        *StatsService
	achievements *AchievementService
	progress     *ProgressService
	reactions    *ReactionService
	sessions     *ReadingSessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()
	clock := &testClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	ledger, err := sqlite.Open(filepath.Join(dir, "ledger.db"), log,
		sqlite.WithLocation(time.UTC), sqlite.WithClock(clock.now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	kv, err := store.New(filepath.Join(dir, "state"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	holder := corpus.NewHolder(corpustest.Sample())
	events := &recorder{}
	st := state.New(kv, holder, events, log, state.WithClock(clock.now))
	require.NoError(t, st.Load(context.Background()))

	rule, err := corpus.NewTestamentRule(corpus.RuleOrdinal, corpustest.Boundary)
	require.NoError(t, err)

	env := &testEnv{
		ledger: ledger,
		kv:     kv,
		state:  st,
		holder: holder,
		events: events,
		clock:  clock,
	}
	env.stats = NewStatsService(ledger, holder, rule, log)
	env.achievements = NewAchievementService(ledger, env.stats, achievement.Default(), events, log)
	env.progress = NewProgressService(ledger, st, holder, env.achievements, events, rule, log)
	env.reactions = NewReactionService(ledger, holder, env.achievements, events, log)
	env.sessions = NewReadingSessionService(ledger, holder, env.achievements, log)
	return env
}

// complete marks segments read in the main context.
func (e *testEnv) complete(t *testing.T, segments ...string) *MarkCompleteResult {
	t.Helper()
	var res *MarkCompleteResult
	for _, seg := range segments {
		var err error
		res, err = e.progress.MarkComplete(context.Background(), MarkCompleteRequest{SegmentID: seg})
		require.NoError(t, err)
	}
	return res
}

// completeIn marks segments read in a plan or challenge context.
func (e *testEnv) completeIn(t *testing.T, kind, ref string, segments ...string) *MarkCompleteResult {
	t.Helper()
	var res *MarkCompleteResult
	for _, seg := range segments {
		var err error
		res, err = e.progress.MarkComplete(context.Background(), MarkCompleteRequest{
			SegmentID: seg,
			Context:   kind,
			RefID:     ref,
		})
		require.NoError(t, err)
	}
	return res
}

func sqliteBookCheck(e *testEnv, segmentID string) sqlite.BookCheck {
	c := e.holder.Current()
	book, ok := c.Book(segmentID)
	if !ok {
		return sqlite.BookCheck{}
	}
	segments, _ := c.BookSegments(book.Code)
	return sqlite.BookCheck{Code: book.Code, Segments: segments}
}
