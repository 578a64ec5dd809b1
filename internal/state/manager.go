// Package state holds the reader's session state in memory, backed by the
// key-value store. Readers are synchronous; every mutator persists before it
// returns and leaves memory untouched when the write fails.
package state

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/metrics"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/listenupapp/readup/internal/store"
)

// Persister is the durable side of the session state.
type Persister interface {
	LoadSessionState(ctx context.Context) (*store.SessionState, error)
	SavePlans(ctx context.Context, plans []*domain.Progress, activeID string) error
	SaveChallenges(ctx context.Context, challenges map[string]*domain.Progress) error
	PutMainMark(ctx context.Context, mark domain.MainMark) error
	ReplaceMainMirror(ctx context.Context, marks map[string]domain.MainMark) error
	SetLastRead(ctx context.Context, last domain.LastRead) error
}

// SegmentSource resolves the required segment set of a plan or challenge.
type SegmentSource interface {
	PlanSegments(planID string) ([]string, bool)
	ChallengeSegments(challengeID string) ([]string, bool)
}

// EventEmitter broadcasts state changes to connected clients.
type EventEmitter interface {
	Emit(event any)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

var errNotLoaded = domainerrors.Internal("session state not loaded")

// Manager is the process-wide session state. Construct one with New, call
// Load once, then share it.
type Manager struct {
	mu        sync.RWMutex
	persister Persister
	segments  SegmentSource
	emitter   EventEmitter
	logger    *slog.Logger
	now       func() time.Time

	loaded       bool
	plans        map[string]*domain.Progress
	activePlanID string
	challenges   map[string]*domain.Progress
	main         map[string]domain.MainMark
	lastRead     *domain.LastRead
}

// New creates an unloaded Manager.
func New(p Persister, segments SegmentSource, emitter EventEmitter, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		persister:  p,
		segments:   segments,
		emitter:    emitter,
		logger:     logger,
		now:        time.Now,
		plans:      make(map[string]*domain.Progress),
		challenges: make(map[string]*domain.Progress),
		main:       make(map[string]domain.MainMark),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load hydrates memory from the persister. A failure here is fatal for boot.
func (m *Manager) Load(ctx context.Context) error {
	st, err := m.persister.LoadSessionState(ctx)
	if err != nil {
		metrics.PersistenceError(metrics.TierState, "load session state")
		return domainerrors.PersistenceInit(err, "load session state")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans = st.Plans
	m.challenges = st.Challenges
	m.main = st.Main
	m.lastRead = st.LastRead
	m.activePlanID = st.ActivePlanID
	if m.activePlanID != "" && m.plans[m.activePlanID] == nil {
		m.logger.Warn("active plan pointer references a missing plan record, clearing",
			"plan_id", m.activePlanID)
		m.activePlanID = ""
	}
	m.loaded = true

	m.logger.Info("session state loaded",
		"plans", len(m.plans),
		"challenges", len(m.challenges),
		"main_marks", len(m.main),
		"active_plan", m.activePlanID)
	return nil
}

// Loaded reports whether Load has completed.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

func (m *Manager) writeErr(err error, op string) error {
	metrics.PersistenceError(metrics.TierState, op)
	m.logger.Error("session state write failed", "op", op, "error", err)
	return domainerrors.PersistenceWrite(err, op)
}

func (m *Manager) emit(event sse.Event) {
	if m.emitter != nil {
		m.emitter.Emit(event)
	}
}

// Readers.

// GetMainCompletion returns the mirror entry for a segment.
func (m *Manager) GetMainCompletion(segmentID string) (domain.MainMark, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mark, ok := m.main[segmentID]
	return mark, ok
}

// MainCompletions returns a copy of the whole mirror.
func (m *Manager) MainCompletions() map[string]domain.MainMark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.main)
}

// GetActivePlan returns the plan the reader currently owns, or nil.
// The returned plan may be paused or completed; check Status.
func (m *Manager) GetActivePlan() *domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activePlanID == "" {
		return nil
	}
	return m.plans[m.activePlanID].Clone()
}

// GetPlan returns any plan record, or nil.
func (m *Manager) GetPlan(id string) *domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plans[id].Clone()
}

// Plans returns every plan record sorted by id.
func (m *Manager) Plans() []*domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedClones(m.plans)
}

// GetActiveChallenge returns the record for a challenge, or nil when it was
// never started.
func (m *Manager) GetActiveChallenge(id string) *domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.challenges[id].Clone()
}

// Challenges returns every challenge record sorted by id.
func (m *Manager) Challenges() []*domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedClones(m.challenges)
}

// GetLastReadSegment returns the last visited segment, or nil.
func (m *Manager) GetLastReadSegment() *domain.LastRead {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastRead == nil {
		return nil
	}
	last := *m.lastRead
	return &last
}

func sortedClones(src map[string]*domain.Progress) []*domain.Progress {
	out := make([]*domain.Progress, 0, len(src))
	for _, id := range slices.Sorted(maps.Keys(src)) {
		out = append(out, src[id].Clone())
	}
	return out
}

// Main mirror and last read.

// MarkMainComplete records the latest main-context completion of a segment.
func (m *Manager) MarkMainComplete(ctx context.Context, segmentID, color string, at time.Time) (domain.MainMark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return domain.MainMark{}, errNotLoaded
	}

	mark := domain.MainMark{SegmentID: segmentID, Color: color, CompletedAt: at}
	if err := m.persister.PutMainMark(ctx, mark); err != nil {
		return domain.MainMark{}, m.writeErr(err, "mark main complete")
	}
	m.main[segmentID] = mark

	m.emit(sse.NewMainCompletedEvent(mark))
	return mark, nil
}

// SetLastRead moves the last-read pointer.
func (m *Manager) SetLastRead(ctx context.Context, segmentID string, cc domain.CompletionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return errNotLoaded
	}

	last := domain.LastRead{SegmentID: segmentID, Context: cc.String(), At: m.now()}
	if err := m.persister.SetLastRead(ctx, last); err != nil {
		return m.writeErr(err, "set last read")
	}
	m.lastRead = &last

	m.emit(sse.NewLastReadEvent(last))
	return nil
}

// ReplaceMainMirror makes the mirror equal to marks and returns how many
// entries differed. Nothing is written when the mirror already matches.
func (m *Manager) ReplaceMainMirror(ctx context.Context, marks map[string]domain.MainMark) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return 0, errNotLoaded
	}

	diff := 0
	for seg, want := range marks {
		have, ok := m.main[seg]
		if !ok || have.Color != want.Color {
			diff++
		}
	}
	for seg := range m.main {
		if _, ok := marks[seg]; !ok {
			diff++
		}
	}
	if diff == 0 {
		return 0, nil
	}

	next := make(map[string]domain.MainMark, len(marks))
	for seg, mark := range marks {
		mark.SegmentID = seg
		next[seg] = mark
	}
	if err := m.persister.ReplaceMainMirror(ctx, next); err != nil {
		return 0, m.writeErr(err, "replace main mirror")
	}
	m.main = next
	return diff, nil
}
