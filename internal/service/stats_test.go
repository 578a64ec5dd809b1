package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/store/sqlite"
)

func TestStats_EmptyLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	count, err := env.stats.GetCompletedSegmentsCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	current, err := env.stats.GetCurrentStreak(ctx)
	require.NoError(t, err)
	assert.Zero(t, current)

	old, err := env.stats.GetOldTestamentProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, old.Completed)
	assert.Equal(t, 8, old.Total)

	nt, err := env.stats.GetNewTestamentProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, nt.Total)

	collection, err := env.stats.CheckEmojiCollection(ctx)
	require.NoError(t, err)
	assert.Empty(t, collection.Collected)
	assert.Len(t, collection.Missing, len(domain.EmojiKinds))

	books, err := env.stats.GetCompletedBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestStats_CurrentStreakDropsAfterMissedDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.complete(t, "S001")

	env.clock.advance(24 * time.Hour)
	current, err := env.stats.GetCurrentStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, current, "yesterday's streak is still alive today")

	env.clock.advance(24 * time.Hour)
	current, err = env.stats.GetCurrentStreak(ctx)
	require.NoError(t, err)
	assert.Zero(t, current)

	best, err := env.stats.GetBestStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, best)
}

func TestStats_TestamentAndSources(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.complete(t, "S001", "S006", "S010", "S000")
	_, err := env.progress.StartChallenge(ctx, "AdventJourney")
	require.NoError(t, err)
	env.completeIn(t, "challenge", "AdventJourney", "S010")

	old, err := env.stats.GetOldTestamentProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, old.Completed, "intro segments are not counted")

	nt, err := env.stats.GetNewTestamentProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nt.Completed)
	assert.InDelta(t, 25.0, nt.Percent, 0.01)

	sources, err := env.stats.GetSourceStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sources.Main)
	assert.Equal(t, 1, sources.Challenge)
	assert.Zero(t, sources.Plan)
}

func TestStats_CheckBookCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.stats.CheckBookCompletion(ctx, "Rev")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	// Rows recorded without a book check still complete the book once asked.
	for _, seg := range []string{"S012", "S013"} {
		_, err := env.ledger.RecordMainCompletion(ctx, seg, "", sqlite.BookCheck{})
		require.NoError(t, err)
	}
	done, err := env.stats.CheckBookCompletion(ctx, "jhn")
	require.NoError(t, err)
	assert.True(t, done)

	books, err := env.stats.GetCompletedBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Jhn", books[0].BookCode)
}

func TestStats_Calendar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.complete(t, "S001")
	env.clock.advance(2 * 24 * time.Hour)
	env.complete(t, "S002", "S003")

	days, err := env.stats.Calendar(ctx, 7)
	require.NoError(t, err)
	require.Len(t, days, 7)

	last := days[len(days)-1]
	assert.Equal(t, env.ledger.Today().String(), last.Date.String())
	assert.True(t, last.HasRead)
	assert.Equal(t, 2, last.SegmentCount)
	assert.False(t, days[5].HasRead)
	assert.True(t, days[4].HasRead)

	all, err := env.stats.Calendar(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 84)
}

func TestStats_Aggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.complete(t, "S001", "S002", "S003", "S004", "S005")
	_, _, err := env.reactions.AddReaction(ctx, ReactionRequest{SegmentID: "S001", BlockID: "b1", Emoji: "🔥"})
	require.NoError(t, err)

	agg, err := env.stats.Aggregates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, agg.CompletedSegments)
	assert.Equal(t, 1, agg.CurrentStreak)
	assert.Equal(t, 1, agg.DaysRead)
	assert.True(t, agg.CompletedBooks["Gen"])
	assert.Equal(t, 1, agg.EmojiCounts["fire"])
	assert.Equal(t, 5, agg.Testaments[domain.OldTestament].Completed)

	stats, err := env.stats.GetReadingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.CompletedSegments)
	assert.Len(t, stats.CompletedBooks, 1)
}

func TestStats_FailedReadIsAnError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.complete(t, "S001")
	require.NoError(t, env.ledger.Close())

	_, err := env.stats.GetCompletedSegmentsCount(ctx)
	assert.True(t, domainerrors.IsPersistence(err))

	_, err = env.stats.Aggregates(ctx)
	assert.Error(t, err)
}
