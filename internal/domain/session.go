package domain

import "time"

// SessionStaleThreshold is how long an open reading session may stay open
// before it is closed at its start time instead of "now".
const SessionStaleThreshold = 12 * time.Hour

// ReadingSession is a span of time spent on one segment.
type ReadingSession struct {
	ID         string            `json:"id"`
	SegmentID  string            `json:"segment_id"`
	Context    CompletionContext `json:"context"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// NewReadingSession opens a session.
func NewReadingSession(id, segmentID string, ctx CompletionContext, now time.Time) *ReadingSession {
	return &ReadingSession{
		ID:        id,
		SegmentID: segmentID,
		Context:   ctx,
		StartedAt: now,
	}
}

// IsActive returns true if the session has not been ended.
func (s *ReadingSession) IsActive() bool {
	return s.EndedAt == nil
}

// IsStale reports whether an open session has been left open too long.
func (s *ReadingSession) IsStale(now time.Time) bool {
	return s.IsActive() && now.Sub(s.StartedAt) > SessionStaleThreshold
}

// End closes the session. Stale sessions are recorded with zero duration
// so a forgotten tab cannot inflate reading time.
func (s *ReadingSession) End(now time.Time) {
	if !s.IsActive() {
		return
	}
	if s.IsStale(now) {
		end := s.StartedAt
		s.EndedAt = &end
		s.DurationMs = 0
		return
	}
	if now.Before(s.StartedAt) {
		now = s.StartedAt
	}
	s.EndedAt = &now
	s.DurationMs = now.Sub(s.StartedAt).Milliseconds()
}
