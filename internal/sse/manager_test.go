package sse

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestManager_BroadcastsToClients(t *testing.T) {
	m := NewManager(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	c, err := m.Connect()
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Emit(NewStreakUpdatedEvent(domain.StreakSummary{CurrentStreak: 2, LongestStreak: 5}))

	e := receive(t, c)
	assert.Equal(t, EventStreakUpdated, e.Type)
	data, ok := e.Data.(StreakEventData)
	require.True(t, ok)
	assert.Equal(t, 2, data.Streak.CurrentStreak)
}

func TestManager_TopicFilter(t *testing.T) {
	m := NewManager(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	stateOnly, err := m.Connect("state")
	require.NoError(t, err)

	m.Emit(NewStreakUpdatedEvent(domain.StreakSummary{}))
	m.Emit(NewLastReadEvent(domain.LastRead{SegmentID: "S001"}))

	e := receive(t, stateOnly)
	assert.Equal(t, EventLastRead, e.Type)
}

func TestManager_IgnoresForeignValues(t *testing.T) {
	m := NewManager(logger.Discard())
	m.Emit("not an event")
	assert.Empty(t, m.queue)
}

func TestManager_DisconnectClosesChannels(t *testing.T) {
	m := NewManager(logger.Discard())
	c, err := m.Connect()
	require.NoError(t, err)

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)

	_, open := <-c.Done
	assert.False(t, open)
	assert.Zero(t, m.ClientCount())
}

func TestManager_ShutdownDrainsAndDropsLateEvents(t *testing.T) {
	m := NewManager(logger.Discard())
	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit(NewBookCompletedEvent(domain.BookCompletion{BookCode: "Gen"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx))

	e, ok := <-c.EventChan
	require.True(t, ok)
	assert.Equal(t, EventBookCompleted, e.Type)

	m.Emit(NewBookCompletedEvent(domain.BookCompletion{BookCode: "Exo"}))
	assert.Zero(t, m.ClientCount())
}

func TestManager_AssignsSequenceAndReplays(t *testing.T) {
	m := NewManager(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	live, err := m.Connect()
	require.NoError(t, err)

	m.Emit(NewLastReadEvent(domain.LastRead{SegmentID: "S001"}))
	m.Emit(NewStreakUpdatedEvent(domain.StreakSummary{CurrentStreak: 1}))
	m.Emit(NewLastReadEvent(domain.LastRead{SegmentID: "S002"}))

	assert.Equal(t, uint64(1), receive(t, live).Seq)
	assert.Equal(t, uint64(2), receive(t, live).Seq)
	assert.Equal(t, uint64(3), receive(t, live).Seq)
	assert.Equal(t, uint64(3), m.LastSeq())

	// Resuming after seq 1 with a state filter replays only seq 3.
	resumed, err := m.ConnectFrom(1, "state")
	require.NoError(t, err)
	e := receive(t, resumed)
	assert.Equal(t, uint64(3), e.Seq)
	assert.Equal(t, "S002", e.Data.(LastReadEventData).LastRead.SegmentID)
	assert.Empty(t, resumed.EventChan)
}

func TestManager_ReplayBufferIsBounded(t *testing.T) {
	m := NewManager(logger.Discard())
	for i := 0; i < replaySize+10; i++ {
		m.publish(NewHeartbeatEvent())
		m.publish(NewLastReadEvent(domain.LastRead{SegmentID: "S001"}))
	}
	assert.Len(t, m.replay, replaySize)
	assert.Equal(t, uint64(11), m.replay[0].Seq)
	assert.Equal(t, uint64(replaySize+10), m.LastSeq())
}

func TestManager_ShutdownRightAfterStartWaitsForLoop(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := NewManager(logger.Discard())
		m.Start(context.Background())
		m.Start(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, m.Shutdown(ctx))
		cancel()

		select {
		case <-m.stopped:
		default:
			t.Fatal("Shutdown returned before the event loop exited")
		}
	}
}

func TestClient_Wants(t *testing.T) {
	c := &Client{Topics: []string{"streak", "achievement"}}
	assert.True(t, c.wants(EventStreakUpdated))
	assert.True(t, c.wants(EventAchievementUnlocked))
	assert.True(t, c.wants(EventHeartbeat))
	assert.False(t, c.wants(EventPlanChanged))

	all := &Client{}
	assert.True(t, all.wants(EventPlanChanged))
}
