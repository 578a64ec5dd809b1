package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup/internal/achievement"
)

func findTrophy(t *testing.T, trophies []achievement.Trophy, id string) achievement.Trophy {
	t.Helper()
	for _, tr := range trophies {
		if tr.ID == id {
			return tr
		}
	}
	t.Fatalf("trophy %s not found", id)
	return achievement.Trophy{}
}

func TestAchievements_ListCoversCatalog(t *testing.T) {
	env := newTestEnv(t)

	trophies, err := env.achievements.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, trophies, achievement.Default().Len())

	first := findTrophy(t, trophies, "first_steps")
	assert.False(t, first.IsCompleted)
	assert.Nil(t, first.UnlockDate)
}

func TestAchievements_SyncIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.complete(t, "S001")
	unlockedAt := env.clock.now()

	again, err := env.achievements.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	env.clock.advance(24 * time.Hour)
	env.complete(t, "S002")

	trophies, err := env.achievements.List(ctx)
	require.NoError(t, err)

	first := findTrophy(t, trophies, "first_steps")
	assert.True(t, first.IsCompleted)
	require.NotNil(t, first.AchievementDate)
	assert.True(t, first.AchievementDate.Equal(unlockedAt))

	week := findTrophy(t, trophies, "week_streak")
	assert.Equal(t, 2, week.Progress)
	assert.False(t, week.IsCompleted)
	require.NotNil(t, week.UnlockDate)
	assert.True(t, week.UnlockDate.Equal(unlockedAt), "unlock date is the first progress")
}

func TestAchievements_LiveEvaluationWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.complete(t, "S001")
	env.clock.advance(3 * 24 * time.Hour)

	trophies, err := env.achievements.List(ctx)
	require.NoError(t, err)

	week := findTrophy(t, trophies, "week_streak")
	assert.Zero(t, week.Progress, "a broken streak shows no progress")
	assert.NotNil(t, week.UnlockDate)
}
