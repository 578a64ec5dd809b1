package state

import (
	"context"
	"time"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/sse"
)

func (m *Manager) challengeRequired(id string) ([]string, error) {
	required, ok := m.segments.ChallengeSegments(id)
	if !ok {
		return nil, domainerrors.NotFoundf("challenge %q not found", id)
	}
	return required, nil
}

// saveChallenge persists the aggregate map with p replacing its entry, then
// commits it.
func (m *Manager) saveChallenge(ctx context.Context, op string, p *domain.Progress) error {
	next := make(map[string]*domain.Progress, len(m.challenges)+1)
	for id, c := range m.challenges {
		next[id] = c
	}
	next[p.ID] = p

	if err := m.persister.SaveChallenges(ctx, next); err != nil {
		return m.writeErr(err, op)
	}
	m.challenges = next
	m.emit(sse.NewChallengeChangedEvent(p.Clone()))
	return nil
}

func (m *Manager) startedChallenge(id string) (*domain.Progress, error) {
	c := m.challenges[id]
	if c == nil {
		return nil, domainerrors.NotFoundf("challenge %q not started", id)
	}
	return c.Clone(), nil
}

// StartChallenge begins a challenge. Several challenges may run at once. A
// completed challenge starts over; a running one is a conflict.
func (m *Manager) StartChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}
	if _, err := m.challengeRequired(id); err != nil {
		return nil, err
	}

	switch m.challenges[id].Status() {
	case domain.StatusActive, domain.StatusPaused:
		return nil, domainerrors.Conflictf("challenge %q already started", id)
	}

	fresh := domain.NewProgress(domain.RunChallenge, id, m.now())
	if err := m.saveChallenge(ctx, "start challenge", fresh); err != nil {
		return nil, err
	}
	m.logger.Info("challenge started", "challenge_id", id)
	return fresh.Clone(), nil
}

// PauseChallenge pauses a running challenge.
func (m *Manager) PauseChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}

	c, err := m.startedChallenge(id)
	if err != nil {
		return nil, err
	}
	if !c.Pause() {
		return nil, domainerrors.Conflictf("challenge %q is %s", id, c.Status())
	}
	if err := m.saveChallenge(ctx, "pause challenge", c); err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// ResumeChallenge resumes a paused challenge.
func (m *Manager) ResumeChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}

	c, err := m.startedChallenge(id)
	if err != nil {
		return nil, err
	}
	if !c.Resume() {
		return nil, domainerrors.Conflictf("challenge %q is %s", id, c.Status())
	}
	if err := m.saveChallenge(ctx, "resume challenge", c); err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// RestartChallenge replaces a challenge with an empty run started now,
// whatever state it was in.
func (m *Manager) RestartChallenge(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, errNotLoaded
	}
	if _, err := m.challengeRequired(id); err != nil {
		return nil, err
	}

	fresh := domain.NewProgress(domain.RunChallenge, id, m.now())
	if err := m.saveChallenge(ctx, "restart challenge", fresh); err != nil {
		return nil, err
	}
	m.logger.Info("challenge restarted", "challenge_id", id)
	return fresh.Clone(), nil
}

// CheckChallengeWritable reports whether a challenge-context completion may
// be recorded for id.
func (m *Manager) CheckChallengeWritable(id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loaded {
		return errNotLoaded
	}
	_, err := m.writableChallenge(id)
	return err
}

func (m *Manager) writableChallenge(id string) (*domain.Progress, error) {
	c, err := m.startedChallenge(id)
	if err != nil {
		return nil, err
	}
	if st := c.Status(); st != domain.StatusActive {
		return nil, domainerrors.Conflictf("challenge %q is %s", id, st)
	}
	return c, nil
}

// ProgressChallenge records a segment on a running challenge and completes it
// once its required set is covered.
func (m *Manager) ProgressChallenge(ctx context.Context, id, segmentID string, at time.Time) (*domain.Progress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, false, errNotLoaded
	}

	c, err := m.writableChallenge(id)
	if err != nil {
		return nil, false, err
	}
	required, err := m.challengeRequired(id)
	if err != nil {
		return nil, false, err
	}

	c.AddSegment(segmentID, at)
	completed := c.Covers(required)
	if completed {
		c.Complete()
	}
	if err := m.saveChallenge(ctx, "progress challenge", c); err != nil {
		return nil, false, err
	}
	if completed {
		m.logger.Info("challenge completed", "challenge_id", id)
	}
	return c.Clone(), completed, nil
}
