package domain

import (
	"slices"
	"time"
)

// RunKind distinguishes plans from challenges.
type RunKind string

// Run kinds.
const (
	RunPlan      RunKind = "plan"
	RunChallenge RunKind = "challenge"
)

// ProgressStatus is the lifecycle position of a plan or challenge.
type ProgressStatus string

// Lifecycle: NotStarted -> Active -> {Paused <-> Active, Completed}.
// Completed is left only through a restart.
const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusActive     ProgressStatus = "active"
	StatusPaused     ProgressStatus = "paused"
	StatusCompleted  ProgressStatus = "completed"
)

// Progress tracks one plan or challenge run.
type Progress struct {
	ID                string    `json:"id"`
	Kind              RunKind   `json:"kind"`
	CompletedSegments []string  `json:"completed_segments"` // ordered set, insertion order
	DateStarted       time.Time `json:"date_started"`
	LastRead          time.Time `json:"last_read,omitzero"`
	IsCompleted       bool      `json:"is_completed"`
	IsPaused          bool      `json:"is_paused"`
}

// NewProgress starts a fresh run.
func NewProgress(kind RunKind, id string, now time.Time) *Progress {
	return &Progress{
		ID:                id,
		Kind:              kind,
		CompletedSegments: []string{},
		DateStarted:       now,
	}
}

// Status derives the lifecycle state from the record.
func (p *Progress) Status() ProgressStatus {
	switch {
	case p == nil || p.DateStarted.IsZero():
		return StatusNotStarted
	case p.IsCompleted:
		return StatusCompleted
	case p.IsPaused:
		return StatusPaused
	default:
		return StatusActive
	}
}

// Has reports whether the segment is already recorded.
func (p *Progress) Has(segmentID string) bool {
	return slices.Contains(p.CompletedSegments, segmentID)
}

// AddSegment appends the segment if absent and stamps LastRead.
// Returns false when the segment was already present.
func (p *Progress) AddSegment(segmentID string, at time.Time) bool {
	p.LastRead = at
	if p.Has(segmentID) {
		return false
	}
	p.CompletedSegments = append(p.CompletedSegments, segmentID)
	return true
}

// Covers reports whether every required segment has been recorded.
// An empty requirement set is never covered.
func (p *Progress) Covers(required []string) bool {
	if len(required) == 0 {
		return false
	}
	done := make(map[string]struct{}, len(p.CompletedSegments))
	for _, id := range p.CompletedSegments {
		done[id] = struct{}{}
	}
	for _, id := range required {
		if _, ok := done[id]; !ok {
			return false
		}
	}
	return true
}

// CountCovered returns how many of the required segments are recorded.
func (p *Progress) CountCovered(required []string) int {
	n := 0
	for _, id := range required {
		if p.Has(id) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	c := *p
	c.CompletedSegments = slices.Clone(p.CompletedSegments)
	if c.CompletedSegments == nil {
		c.CompletedSegments = []string{}
	}
	return &c
}

// Pause stops an active run. Returns false unless the run was active.
func (p *Progress) Pause() bool {
	if p.Status() != StatusActive {
		return false
	}
	p.IsPaused = true
	return true
}

// Resume reactivates a paused run. Returns false unless the run was paused.
func (p *Progress) Resume() bool {
	if p.Status() != StatusPaused {
		return false
	}
	p.IsPaused = false
	return true
}

// Complete marks the run finished. A completed run is never paused.
func (p *Progress) Complete() {
	p.IsCompleted = true
	p.IsPaused = false
}
