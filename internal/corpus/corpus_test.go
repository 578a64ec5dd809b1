package corpus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/corpus/corpustest"
	"github.com/listenupapp/readup/internal/domain"
)

func TestParse_AssignsOrdinalsInFileOrder(t *testing.T) {
	c := corpustest.Sample()

	first, ok := c.Segment("S000")
	require.True(t, ok)
	assert.Equal(t, 1, first.Ordinal)
	assert.True(t, first.Intro)
	assert.Equal(t, "Gen", first.BookCode)

	last, ok := c.Segment("S013")
	require.True(t, ok)
	assert.Equal(t, 14, last.Ordinal)
	assert.Equal(t, 12, c.SegmentCount())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"duplicate segment", `
books:
  - {code: A, testament: old, segments: [{id: X}]}
  - {code: B, testament: old, segments: [{id: X}]}`},
		{"duplicate book ignoring case", `
books:
  - {code: Gen, testament: old, segments: [{id: X}]}
  - {code: GEN, testament: old, segments: [{id: Y}]}`},
		{"unknown testament", `
books:
  - {code: A, testament: apocrypha, segments: [{id: X}]}`},
		{"plan with unknown segment", `
books:
  - {code: A, testament: old, segments: [{id: X}]}
plans:
  - {id: p, segments: [X, Z]}`},
		{"not yaml", `books: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := corpus.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestBookLookups(t *testing.T) {
	c := corpustest.Sample()

	b, ok := c.Book("S003")
	require.True(t, ok)
	assert.Equal(t, "Gen", b.Code)

	b, ok = c.BookByCode("gen")
	require.True(t, ok)
	assert.Equal(t, "Genesis", b.Name)

	segs, ok := c.BookSegments("GEN")
	require.True(t, ok)
	assert.Equal(t, []string{"S001", "S002", "S003", "S004", "S005"}, segs)

	_, ok = c.BookSegments("Rev")
	assert.False(t, ok)
}

func TestRunSegmentsSkipIntros(t *testing.T) {
	c := corpustest.Sample()

	segs, ok := c.ChallengeSegments("AdventJourney")
	require.True(t, ok)
	assert.Equal(t, []string{"S010", "S011"}, segs)

	segs, ok = c.PlanSegments("chronological")
	require.True(t, ok)
	assert.Equal(t, []string{"S001", "S002", "S006", "S010"}, segs)

	_, ok = c.PlanSegments("AdventJourney")
	assert.False(t, ok)

	require.Len(t, c.Plans(), 2)
	assert.Equal(t, "chronological", c.Plans()[0].ID)
	assert.Equal(t, domain.RunChallenge, c.Challenges()[0].Kind)
}

func TestTestament_Rules(t *testing.T) {
	c := corpustest.Sample()

	ordinal, err := corpus.NewTestamentRule(corpus.RuleOrdinal, 8)
	require.NoError(t, err)
	byBook, err := corpus.NewTestamentRule(corpus.RuleBook, 0)
	require.NoError(t, err)

	// S008 has ordinal 9: past a boundary of 8, but Exodus is old.
	got, ok := c.Testament("S008", ordinal)
	require.True(t, ok)
	assert.Equal(t, domain.NewTestament, got)

	got, ok = c.Testament("S008", byBook)
	require.True(t, ok)
	assert.Equal(t, domain.OldTestament, got)

	_, ok = c.Testament("S000", byBook)
	assert.False(t, ok, "intro segments are not counted")

	assert.Equal(t, map[domain.Testament]int{domain.OldTestament: 8, domain.NewTestament: 4}, c.TestamentTotals(byBook))
	assert.Equal(t, map[domain.Testament]int{domain.OldTestament: 7, domain.NewTestament: 5}, c.TestamentTotals(ordinal))
}

func TestCheckTestamentBoundary(t *testing.T) {
	c := corpustest.Sample()

	assert.Empty(t, c.CheckTestamentBoundary(corpustest.Boundary))
	assert.Equal(t, []string{"S008"}, c.CheckTestamentBoundary(8))
	assert.Equal(t, []string{"S010"}, c.CheckTestamentBoundary(11))
}

func TestNewTestamentRule_Validation(t *testing.T) {
	_, err := corpus.NewTestamentRule(corpus.RuleOrdinal, 0)
	assert.Error(t, err)
	_, err = corpus.NewTestamentRule("canon", 10)
	assert.Error(t, err)
}
