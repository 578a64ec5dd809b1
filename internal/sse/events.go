// Package sse implements Server-Sent Events so the reader UI re-renders from
// session state as soon as it changes.
package sse

import (
	"time"

	"github.com/listenupapp/readup/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventMainCompleted is sent after a main-context completion reaches the mirror.
	EventMainCompleted EventType = "state.main_completed"
	// EventPlanChanged is sent whenever a plan record or the active pointer changes.
	EventPlanChanged EventType = "state.plan_changed"
	// EventChallengeChanged is sent whenever a challenge record changes.
	EventChallengeChanged EventType = "state.challenge_changed"
	// EventLastRead is sent when the last visited segment moves.
	EventLastRead EventType = "state.last_read"
	// EventReconciled is sent after boot reconciliation corrected session state.
	EventReconciled EventType = "state.reconciled"

	// EventStreakUpdated is sent when the streak summary changes.
	EventStreakUpdated EventType = "streak.updated"
	// EventBookCompleted is sent the first time a book is flagged complete.
	EventBookCompleted EventType = "book.completed"
	// EventAchievementUnlocked is sent when an achievement flips to achieved.
	EventAchievementUnlocked EventType = "achievement.unlocked"
	// EventReactionChanged is sent when a reaction is added or removed.
	EventReactionChanged EventType = "reaction.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one frame on the stream. Seq is assigned by the Manager when the
// event is broadcast and is zero for heartbeats.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	Seq       uint64    `json:"seq,omitempty"`
}

// MainCompletedEventData is the payload for state.main_completed.
type MainCompletedEventData struct {
	Mark domain.MainMark `json:"mark"`
}

// PlanEventData is the payload for state.plan_changed.
type PlanEventData struct {
	Plan         *domain.Progress `json:"plan"`
	ActivePlanID string           `json:"active_plan_id"`
}

// ChallengeEventData is the payload for state.challenge_changed.
type ChallengeEventData struct {
	Challenge *domain.Progress `json:"challenge"`
}

// LastReadEventData is the payload for state.last_read.
type LastReadEventData struct {
	LastRead domain.LastRead `json:"last_read"`
}

// ReconciledEventData is the payload for state.reconciled.
type ReconciledEventData struct {
	MainCorrections      int `json:"main_corrections"`
	PlanCorrections      int `json:"plan_corrections"`
	ChallengeCorrections int `json:"challenge_corrections"`
}

// StreakEventData is the payload for streak.updated.
type StreakEventData struct {
	Streak domain.StreakSummary `json:"streak"`
}

// BookCompletedEventData is the payload for book.completed.
type BookCompletedEventData struct {
	Book domain.BookCompletion `json:"book"`
}

// AchievementEventData is the payload for achievement.unlocked.
type AchievementEventData struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AchievedAt time.Time `json:"achieved_at"`
}

// ReactionEventData is the payload for reaction.changed.
type ReactionEventData struct {
	Reaction domain.Reaction `json:"reaction"`
	Removed  bool            `json:"removed"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, data any) Event {
	return Event{
		Type:      t,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewMainCompletedEvent creates a state.main_completed event.
func NewMainCompletedEvent(mark domain.MainMark) Event {
	return newEvent(EventMainCompleted, MainCompletedEventData{Mark: mark})
}

// NewPlanChangedEvent creates a state.plan_changed event.
func NewPlanChangedEvent(plan *domain.Progress, activePlanID string) Event {
	return newEvent(EventPlanChanged, PlanEventData{Plan: plan, ActivePlanID: activePlanID})
}

// NewChallengeChangedEvent creates a state.challenge_changed event.
func NewChallengeChangedEvent(challenge *domain.Progress) Event {
	return newEvent(EventChallengeChanged, ChallengeEventData{Challenge: challenge})
}

// NewLastReadEvent creates a state.last_read event.
func NewLastReadEvent(last domain.LastRead) Event {
	return newEvent(EventLastRead, LastReadEventData{LastRead: last})
}

// NewReconciledEvent creates a state.reconciled event.
func NewReconciledEvent(data ReconciledEventData) Event {
	return newEvent(EventReconciled, data)
}

// NewStreakUpdatedEvent creates a streak.updated event.
func NewStreakUpdatedEvent(summary domain.StreakSummary) Event {
	return newEvent(EventStreakUpdated, StreakEventData{Streak: summary})
}

// NewBookCompletedEvent creates a book.completed event.
func NewBookCompletedEvent(book domain.BookCompletion) Event {
	return newEvent(EventBookCompleted, BookCompletedEventData{Book: book})
}

// NewAchievementUnlockedEvent creates an achievement.unlocked event.
func NewAchievementUnlockedEvent(id, title string, at time.Time) Event {
	return newEvent(EventAchievementUnlocked, AchievementEventData{ID: id, Title: title, AchievedAt: at})
}

// NewReactionChangedEvent creates a reaction.changed event.
func NewReactionChangedEvent(r domain.Reaction, removed bool) Event {
	return newEvent(EventReactionChanged, ReactionEventData{Reaction: r, Removed: removed})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, HeartbeatEventData{ServerTime: time.Now()})
}
