package corpus

import (
	"sync/atomic"
)

// Holder publishes the current corpus and lets a reload swap it atomically.
// Lookups made through the holder always see one complete corpus.
type Holder struct {
	current atomic.Pointer[Corpus]
}

// NewHolder returns a holder serving c.
func NewHolder(c *Corpus) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Current returns the corpus in use.
func (h *Holder) Current() *Corpus {
	return h.current.Load()
}

// Swap replaces the corpus.
func (h *Holder) Swap(c *Corpus) {
	h.current.Store(c)
}

// PlanSegments delegates to the current corpus.
func (h *Holder) PlanSegments(planID string) ([]string, bool) {
	return h.Current().PlanSegments(planID)
}

// ChallengeSegments delegates to the current corpus.
func (h *Holder) ChallengeSegments(challengeID string) ([]string, bool) {
	return h.Current().ChallengeSegments(challengeID)
}
