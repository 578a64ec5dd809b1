package corpus

import (
	"fmt"

	"github.com/listenupapp/readup/internal/domain"
)

// Testament rule modes.
const (
	RuleOrdinal = "ordinal"
	RuleBook    = "book"
)

// TestamentRule decides which testament a segment counts toward.
//
// The ordinal rule puts every segment with ordinal <= Boundary in the old
// testament. It is the long-standing behavior of the progress screen. The
// book rule uses each book's declared testament.
type TestamentRule struct {
	Mode     string
	Boundary int
}

// NewTestamentRule validates and builds a rule.
func NewTestamentRule(mode string, boundary int) (TestamentRule, error) {
	switch mode {
	case RuleOrdinal:
		if boundary <= 0 {
			return TestamentRule{}, fmt.Errorf("ordinal testament rule needs a positive boundary")
		}
	case RuleBook:
	default:
		return TestamentRule{}, fmt.Errorf("unknown testament rule %q", mode)
	}
	return TestamentRule{Mode: mode, Boundary: boundary}, nil
}

// Testament classifies a segment. Intro segments and unknown ids are not counted.
func (c *Corpus) Testament(segmentID string, rule TestamentRule) (domain.Testament, bool) {
	s, ok := c.segments[segmentID]
	if !ok || s.Intro {
		return "", false
	}
	if rule.Mode == RuleBook {
		b, ok := c.BookByCode(s.BookCode)
		if !ok {
			return "", false
		}
		return b.Testament, true
	}
	if s.Ordinal <= rule.Boundary {
		return domain.OldTestament, true
	}
	return domain.NewTestament, true
}

// TestamentTotals counts classifiable segments per testament.
func (c *Corpus) TestamentTotals(rule TestamentRule) map[domain.Testament]int {
	totals := map[domain.Testament]int{domain.OldTestament: 0, domain.NewTestament: 0}
	for id := range c.segments {
		if t, ok := c.Testament(id, rule); ok {
			totals[t]++
		}
	}
	return totals
}

// CheckTestamentBoundary returns the segments the ordinal rule with the given
// boundary places in a different testament than their book does, in ordinal order.
func (c *Corpus) CheckTestamentBoundary(boundary int) []string {
	ordinal := TestamentRule{Mode: RuleOrdinal, Boundary: boundary}
	byBook := TestamentRule{Mode: RuleBook}

	var out []string
	for _, b := range c.books {
		for _, s := range b.Segments {
			a, okA := c.Testament(s.ID, ordinal)
			bt, okB := c.Testament(s.ID, byBook)
			if okA && okB && a != bt {
				out = append(out, s.ID)
			}
		}
	}
	return out
}
