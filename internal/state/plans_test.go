package state_test

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPlan_SecondPlanPausesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, a.Status())
	assert.True(t, a.DateStarted.Equal(f.clock.t))

	b, err := f.manager.StartPlan(ctx, "gospels")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, b.Status())

	assert.Equal(t, domain.StatusPaused, f.manager.GetPlan("chronological").Status())
	assert.Equal(t, "gospels", f.manager.GetActivePlan().ID)

	active := 0
	for _, p := range f.manager.Plans() {
		if p.Status() == domain.StatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	reloaded := f.reload(t)
	assert.Equal(t, "gospels", reloaded.GetActivePlan().ID)
	assert.Equal(t, domain.StatusPaused, reloaded.GetPlan("chronological").Status())
}

func TestStartPlan_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StartPlan(ctx, "unknown")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	_, err = f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)
	_, err = f.manager.StartPlan(ctx, "chronological")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestStartPlan_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)

	f.kv.fail = true
	_, err = f.manager.StartPlan(ctx, "gospels")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrPersistenceWrite))

	assert.Equal(t, "chronological", f.manager.GetActivePlan().ID)
	assert.Equal(t, domain.StatusActive, f.manager.GetPlan("chronological").Status())
	assert.Nil(t, f.manager.GetPlan("gospels"))
}

func TestPauseResumePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.PausePlan(ctx, "chronological")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	_, err = f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)

	p, err := f.manager.PausePlan(ctx, "chronological")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, p.Status())

	_, err = f.manager.PausePlan(ctx, "chronological")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
	assert.True(t, domainerrors.Is(f.manager.CheckPlanWritable("chronological"), domainerrors.ErrConflict))

	p, err = f.manager.ResumePlan(ctx, "chronological")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, p.Status())
	assert.NoError(t, f.manager.CheckPlanWritable("chronological"))
}

func TestResumePlan_OnlyTheActivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)
	_, err = f.manager.StartPlan(ctx, "gospels")
	require.NoError(t, err)

	_, err = f.manager.ResumePlan(ctx, "chronological")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestSwitchPlan_KeepsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)
	_, _, err = f.manager.ProgressPlan(ctx, "chronological", "S001", f.clock.t)
	require.NoError(t, err)

	g, err := f.manager.SwitchPlan(ctx, "gospels")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, g.Status())
	assert.Equal(t, domain.StatusPaused, f.manager.GetPlan("chronological").Status())

	c, err := f.manager.SwitchPlan(ctx, "chronological")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, c.Status())
	assert.Equal(t, []string{"S001"}, c.CompletedSegments)
	assert.Equal(t, domain.StatusPaused, f.manager.GetPlan("gospels").Status())

	same, err := f.manager.SwitchPlan(ctx, "chronological")
	require.NoError(t, err)
	assert.Equal(t, c.CompletedSegments, same.CompletedSegments)
}

func TestProgressPlan_CompletesWhenCovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.clock.t

	_, err := f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)

	var done bool
	for i, seg := range []string{"S001", "S002", "S006", "S002"} {
		_, done, err = f.manager.ProgressPlan(ctx, "chronological", seg, at.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.False(t, done)
	}

	p, done, err := f.manager.ProgressPlan(ctx, "chronological", "S010", at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, domain.StatusCompleted, p.Status())
	assert.Equal(t, []string{"S001", "S002", "S006", "S010"}, p.CompletedSegments)
	assert.True(t, p.LastRead.Equal(at.Add(time.Hour)))

	_, _, err = f.manager.ProgressPlan(ctx, "chronological", "S001", at)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

	// A completed plan can be started over.
	fresh, err := f.manager.StartPlan(ctx, "chronological")
	require.NoError(t, err)
	assert.Empty(t, fresh.CompletedSegments)

	_, err = f.manager.SwitchPlan(ctx, "gospels")
	require.NoError(t, err)
	_, _, err = f.manager.ProgressPlan(ctx, "chronological", "S001", at)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict), "only the active plan accepts progress")
}

func TestProgressPlan_EmitsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.StartPlan(ctx, "gospels")
	require.NoError(t, err)
	_, _, err = f.manager.ProgressPlan(ctx, "gospels", "S010", f.clock.t)
	require.NoError(t, err)

	require.Len(t, f.events.events, 2)
	for _, e := range f.events.events {
		assert.Equal(t, sse.EventPlanChanged, e.Type)
	}
	data := f.events.events[1].Data.(sse.PlanEventData)
	assert.Equal(t, "gospels", data.ActivePlanID)
	assert.Equal(t, []string{"S010"}, data.Plan.CompletedSegments)
}
