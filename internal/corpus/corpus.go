// Package corpus indexes the read-only reading content: books and their
// segments, plus the segment sets of plans and challenges.
package corpus

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/listenupapp/readup/internal/domain"
)

// Segment is one readable passage.
type Segment struct {
	ID       string `yaml:"id"`
	Ordinal  int    `yaml:"ordinal"`
	Intro    bool   `yaml:"intro"`
	BookCode string `yaml:"-"`
}

// Book groups segments.
type Book struct {
	Code      string           `yaml:"code"`
	Name      string           `yaml:"name"`
	Testament domain.Testament `yaml:"testament"`
	Segments  []Segment        `yaml:"segments"`
}

// Run is a plan or challenge definition.
type Run struct {
	ID       string         `yaml:"id"`
	Title    string         `yaml:"title"`
	Kind     domain.RunKind `yaml:"-"`
	Segments []string       `yaml:"segments"`
}

type file struct {
	Books      []*Book `yaml:"books"`
	Plans      []*Run  `yaml:"plans"`
	Challenges []*Run  `yaml:"challenges"`
}

// Corpus is an immutable index over the content. Safe for concurrent reads.
type Corpus struct {
	books      []*Book
	bookByKey  map[string]*Book
	segments   map[string]*Segment
	plans      map[string]*Run
	challenges map[string]*Run
}

// Load reads and parses a corpus file.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a corpus from YAML. Segments without an explicit ordinal are
// numbered after the previous segment, in file order starting at 1.
func Parse(data []byte) (*Corpus, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	c := &Corpus{
		bookByKey:  make(map[string]*Book, len(f.Books)),
		segments:   make(map[string]*Segment),
		plans:      make(map[string]*Run, len(f.Plans)),
		challenges: make(map[string]*Run, len(f.Challenges)),
	}

	ordinal := 0
	for _, b := range f.Books {
		if b.Code == "" {
			return nil, fmt.Errorf("book without code")
		}
		key := foldCode(b.Code)
		if _, dup := c.bookByKey[key]; dup {
			return nil, fmt.Errorf("duplicate book %q", b.Code)
		}
		if b.Testament != domain.OldTestament && b.Testament != domain.NewTestament {
			return nil, fmt.Errorf("book %q: unknown testament %q", b.Code, b.Testament)
		}
		for i := range b.Segments {
			seg := &b.Segments[i]
			if seg.ID == "" {
				return nil, fmt.Errorf("book %q: segment %d has no id", b.Code, i)
			}
			if _, dup := c.segments[seg.ID]; dup {
				return nil, fmt.Errorf("duplicate segment %q", seg.ID)
			}
			if seg.Ordinal == 0 {
				seg.Ordinal = ordinal + 1
			}
			ordinal = seg.Ordinal
			seg.BookCode = b.Code
			c.segments[seg.ID] = seg
		}
		c.books = append(c.books, b)
		c.bookByKey[key] = b
	}

	if err := c.indexRuns(f.Plans, domain.RunPlan, c.plans); err != nil {
		return nil, err
	}
	if err := c.indexRuns(f.Challenges, domain.RunChallenge, c.challenges); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Corpus) indexRuns(runs []*Run, kind domain.RunKind, into map[string]*Run) error {
	for _, r := range runs {
		if r.ID == "" {
			return fmt.Errorf("%s without id", kind)
		}
		if _, dup := into[r.ID]; dup {
			return fmt.Errorf("duplicate %s %q", kind, r.ID)
		}
		for _, segID := range r.Segments {
			if _, ok := c.segments[segID]; !ok {
				return fmt.Errorf("%s %q: unknown segment %q", kind, r.ID, segID)
			}
		}
		r.Kind = kind
		into[r.ID] = r
	}
	return nil
}

// HasSegment reports whether the segment exists.
func (c *Corpus) HasSegment(segmentID string) bool {
	_, ok := c.segments[segmentID]
	return ok
}

// Segment returns a segment by id.
func (c *Corpus) Segment(segmentID string) (Segment, bool) {
	s, ok := c.segments[segmentID]
	if !ok {
		return Segment{}, false
	}
	return *s, true
}

// SegmentCount returns the number of non-intro segments.
func (c *Corpus) SegmentCount() int {
	n := 0
	for _, s := range c.segments {
		if !s.Intro {
			n++
		}
	}
	return n
}

// Book returns the book a segment belongs to.
func (c *Corpus) Book(segmentID string) (*Book, bool) {
	s, ok := c.segments[segmentID]
	if !ok {
		return nil, false
	}
	return c.BookByCode(s.BookCode)
}

// BookByCode looks a book up by code, ignoring case.
func (c *Corpus) BookByCode(code string) (*Book, bool) {
	b, ok := c.bookByKey[foldCode(code)]
	return b, ok
}

// Books returns all books in corpus order.
func (c *Corpus) Books() []*Book {
	return c.books
}

// BookSegments returns the non-intro segments of a book: the set that must be
// read in the main context for the book to count as complete.
func (c *Corpus) BookSegments(code string) ([]string, bool) {
	b, ok := c.BookByCode(code)
	if !ok {
		return nil, false
	}
	return required(b.Segments), true
}

// PlanSegments returns the non-intro segment set of a plan.
func (c *Corpus) PlanSegments(planID string) ([]string, bool) {
	return c.runSegments(c.plans, planID)
}

// ChallengeSegments returns the non-intro segment set of a challenge.
func (c *Corpus) ChallengeSegments(challengeID string) ([]string, bool) {
	return c.runSegments(c.challenges, challengeID)
}

func (c *Corpus) runSegments(runs map[string]*Run, id string) ([]string, bool) {
	r, ok := runs[id]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(r.Segments))
	for _, segID := range r.Segments {
		if !c.segments[segID].Intro {
			out = append(out, segID)
		}
	}
	return out, true
}

// Plans lists plan definitions sorted by id.
func (c *Corpus) Plans() []*Run { return sortedRuns(c.plans) }

// Challenges lists challenge definitions sorted by id.
func (c *Corpus) Challenges() []*Run { return sortedRuns(c.challenges) }

func sortedRuns(m map[string]*Run) []*Run {
	out := make([]*Run, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// foldCode makes "GEN", "gen" and "Gen" the same key. Casers hold state, so
// each call gets its own.
func foldCode(code string) string {
	return cases.Fold().String(code)
}

func required(segs []Segment) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if !s.Intro {
			out = append(out, s.ID)
		}
	}
	return out
}
