package state

import (
	"context"
	"time"

	"github.com/listenupapp/readup/internal/domain"
)

// MergeRunSegments adds ledger-confirmed segments missing from a started run
// and completes the run when they cover its required set. Unlike
// ProgressPlan it ignores pause state: the ledger already holds the facts.
// Runs that were never started are left alone.
func (m *Manager) MergeRunSegments(ctx context.Context, kind domain.RunKind, id string, segmentIDs []string, at time.Time) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return 0, false, errNotLoaded
	}

	var (
		current  *domain.Progress
		required []string
		ok       bool
	)
	switch kind {
	case domain.RunPlan:
		current = m.plans[id]
		required, ok = m.segments.PlanSegments(id)
	case domain.RunChallenge:
		current = m.challenges[id]
		required, ok = m.segments.ChallengeSegments(id)
	}
	if current == nil {
		return 0, false, nil
	}

	p := current.Clone()
	added := 0
	for _, seg := range segmentIDs {
		if !p.Has(seg) {
			p.AddSegment(seg, at)
			added++
		}
	}
	completed := ok && !p.IsCompleted && p.Covers(required)
	if completed {
		p.Complete()
	}
	if added == 0 && !completed {
		return 0, false, nil
	}

	var err error
	if kind == domain.RunPlan {
		err = m.savePlans(ctx, "reconcile plan", m.activePlanID, p)
	} else {
		err = m.saveChallenge(ctx, "reconcile challenge", p)
	}
	if err != nil {
		return 0, false, err
	}
	return added, completed, nil
}
