// Package achievement turns reading aggregates into trophies using a static
// catalog of rules.
package achievement

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/validation"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// RuleKind selects the aggregate a rule measures.
type RuleKind string

// Rule kinds.
const (
	RuleSegmentsCompleted   RuleKind = "segments_completed"
	RuleCurrentStreak       RuleKind = "current_streak"
	RuleLongestStreak       RuleKind = "longest_streak"
	RuleEmojiCount          RuleKind = "emoji_count"
	RuleEmojiCollection     RuleKind = "emoji_collection"
	RuleColorCount          RuleKind = "color_count"
	RuleBookCompleted       RuleKind = "book_completed"
	RuleBooksCompleted      RuleKind = "books_completed"
	RuleTestamentComplete   RuleKind = "testament_complete"
	RulePlansCompleted      RuleKind = "plans_completed"
	RuleChallengesCompleted RuleKind = "challenges_completed"
	RuleDaysRead            RuleKind = "days_read"
	RuleReadingMinutes      RuleKind = "reading_minutes"
)

// Rule is the predicate of one catalog entry. Target is the count to reach;
// rules that measure a yes/no fact ignore it.
type Rule struct {
	Kind      RuleKind `yaml:"kind" json:"kind" validate:"required,oneof=segments_completed current_streak longest_streak emoji_count emoji_collection color_count book_completed books_completed testament_complete plans_completed challenges_completed days_read reading_minutes"`
	Target    int      `yaml:"target" json:"target" validate:"gte=0"`
	Emoji     string   `yaml:"emoji" json:"emoji,omitempty" validate:"required_if=Kind emoji_count"`
	Color     string   `yaml:"color" json:"color,omitempty"`
	Book      string   `yaml:"book" json:"book,omitempty" validate:"required_if=Kind book_completed"`
	Testament string   `yaml:"testament" json:"testament,omitempty" validate:"omitempty,oneof=old new"`
}

// Entry is one achievement definition.
type Entry struct {
	ID          string `yaml:"id" json:"id" validate:"required,ident"`
	Title       string `yaml:"title" json:"title" validate:"required,max=80"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category" validate:"omitempty,oneof=reading streak reactions books runs"`
	Rule        Rule   `yaml:"rule" json:"rule"`
}

// Catalog is an ordered, validated list of entries.
type Catalog struct {
	entries []Entry
	byID    map[string]int
}

type catalogFile struct {
	Achievements []Entry `yaml:"achievements"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded achievement catalog: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path selects the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read achievement catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "parse achievement catalog")
	}
	if len(f.Achievements) == 0 {
		return nil, domainerrors.Validation("achievement catalog is empty")
	}

	v := validation.New()
	c := &Catalog{byID: make(map[string]int, len(f.Achievements))}
	for i, e := range f.Achievements {
		if err := v.Validate(e); err != nil {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeValidation, "achievement #%d (%s)", i+1, e.ID)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, domainerrors.Validationf("duplicate achievement %q", e.ID)
		}
		if e.Rule.Kind == RuleEmojiCount {
			name, ok := domain.EmojiName(e.Rule.Emoji)
			if !ok {
				return nil, domainerrors.Validationf("achievement %q: unknown emoji %q", e.ID, e.Rule.Emoji)
			}
			e.Rule.Emoji = name
		}
		if e.Rule.Kind == RuleTestamentComplete && e.Rule.Testament == "" {
			return nil, domainerrors.Validationf("achievement %q: testament is required", e.ID)
		}
		if e.Rule.Target == 0 && needsTarget(e.Rule.Kind) {
			return nil, domainerrors.Validationf("achievement %q: target must be positive", e.ID)
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

func needsTarget(k RuleKind) bool {
	switch k {
	case RuleBookCompleted, RuleTestamentComplete, RuleEmojiCollection:
		return false
	default:
		return true
	}
}

// Entries returns the entries in display order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Entry looks up one definition.
func (c *Catalog) Entry(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }
