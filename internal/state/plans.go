package state

import (
	"context"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/sse"
)

// planRequired returns the required segments of a known plan.
func (m *Manager) planRequired(id string) ([]string, error) {
	required, ok := m.segments.PlanSegments(id)
	if !ok {
		return nil, domainerrors.NotFoundf("plan %q not found", id)
	}
	return required, nil
}

// savePlans persists changed plan records with the pointer, then commits them.
func (m *Manager) savePlans(ctx context.Context, op string, activeID string, changed ...*domain.Progress) error {
	if err := m.persister.SavePlans(ctx, changed, activeID); err != nil {
		return m.writeErr(err, op)
	}
	for _, p := range changed {
		m.plans[p.ID] = p
	}
	m.activePlanID = activeID
	for _, p := range changed {
		m.emit(sse.NewPlanChangedEvent(p.Clone(), activeID))
	}
	return nil
}

// pausedPrevious returns a paused copy of the current plan when it is active
// and is not id. Only the returned copy is meant to be saved.
func (m *Manager) pausedPrevious(id string) *domain.Progress {
	if m.activePlanID == "" || m.activePlanID == id {
		return nil
	}
	prev := m.plans[m.activePlanID].Clone()
	if prev == nil || !prev.Pause() {
		return nil
	}
	return prev
}

// StartPlan begins a fresh run of a plan and makes it the active plan. The
// previous plan, if active, is paused in the same write. A completed plan
// may be started again; an active or paused one may not.
func (m *Manager) StartPlan(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}
	if _, err := m.planRequired(id); err != nil {
		return nil, err
	}

	switch m.plans[id].Status() {
	case domain.StatusActive, domain.StatusPaused:
		return nil, domainerrors.Conflictf("plan %q already started", id)
	}

	fresh := domain.NewProgress(domain.RunPlan, id, m.now())
	changed := []*domain.Progress{fresh}
	if prev := m.pausedPrevious(id); prev != nil {
		changed = append(changed, prev)
	}

	if err := m.savePlans(ctx, "start plan", id, changed...); err != nil {
		return nil, err
	}
	m.logger.Info("plan started", "plan_id", id)
	return fresh.Clone(), nil
}

// PausePlan pauses the active plan.
func (m *Manager) PausePlan(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}

	p, err := m.ownedPlan(id)
	if err != nil {
		return nil, err
	}
	if !p.Pause() {
		return nil, domainerrors.Conflictf("plan %q is %s", id, p.Status())
	}
	if err := m.savePlans(ctx, "pause plan", m.activePlanID, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// ResumePlan resumes the paused active plan. Use SwitchPlan to go back to an
// older plan.
func (m *Manager) ResumePlan(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}

	p, err := m.ownedPlan(id)
	if err != nil {
		return nil, err
	}
	if !p.Resume() {
		return nil, domainerrors.Conflictf("plan %q is %s", id, p.Status())
	}
	if err := m.savePlans(ctx, "resume plan", m.activePlanID, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// SwitchPlan makes id the active plan, pausing the previous one. A plan never
// started is started; a paused one is resumed with its progress intact.
func (m *Manager) SwitchPlan(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}
	if _, err := m.planRequired(id); err != nil {
		return nil, err
	}

	target := m.plans[id].Clone()
	switch target.Status() {
	case domain.StatusNotStarted:
		target = domain.NewProgress(domain.RunPlan, id, m.now())
	case domain.StatusCompleted:
		return nil, domainerrors.Conflictf("plan %q is completed; start it again instead", id)
	case domain.StatusPaused:
		target.Resume()
	case domain.StatusActive:
		if m.activePlanID == id {
			return target, nil
		}
	}

	changed := []*domain.Progress{target}
	if prev := m.pausedPrevious(id); prev != nil {
		changed = append(changed, prev)
	}
	if err := m.savePlans(ctx, "switch plan", id, changed...); err != nil {
		return nil, err
	}
	m.logger.Info("plan switched", "plan_id", id)
	return target.Clone(), nil
}

// CheckPlanWritable reports whether a plan-context completion may be recorded
// for id: it must be the active plan and not paused or completed.
func (m *Manager) CheckPlanWritable(id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loaded {
		return errNotLoaded
	}
	_, err := m.writablePlan(id)
	return err
}

func (m *Manager) writablePlan(id string) (*domain.Progress, error) {
	p, err := m.ownedPlan(id)
	if err != nil {
		return nil, err
	}
	if st := p.Status(); st != domain.StatusActive {
		return nil, domainerrors.Conflictf("plan %q is %s", id, st)
	}
	return p, nil
}

// ownedPlan returns a copy of the active plan, failing unless id names it.
func (m *Manager) ownedPlan(id string) (*domain.Progress, error) {
	p := m.plans[id]
	if p == nil {
		return nil, domainerrors.NotFoundf("plan %q not started", id)
	}
	if m.activePlanID != id {
		return nil, domainerrors.Conflictf("plan %q is not the active plan", id)
	}
	return p.Clone(), nil
}

// ProgressPlan records a segment on the active plan and completes the plan
// once its required set is covered. The bool reports a completion caused by
// this call.
func (m *Manager) ProgressPlan(ctx context.Context, id, segmentID string, at time.Time) (*domain.Progress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, false, errNotLoaded
	}

	p, err := m.writablePlan(id)
	if err != nil {
		return nil, false, err
	}
	required, err := m.planRequired(id)
	if err != nil {
		return nil, false, err
	}

	p.AddSegment(segmentID, at)
	completed := p.Covers(required)
	if completed {
		p.Complete()
	}
	if err := m.savePlans(ctx, "progress plan", m.activePlanID, p); err != nil {
		return nil, false, err
	}
	if completed {
		m.logger.Info("plan completed", "plan_id", id)
	}
	return p.Clone(), completed, nil
}
