package domain

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// variationSelector16 requests emoji presentation. "❤" and "❤️" are the same reaction.
const variationSelector16 = "\uFE0F"

// EmojiKind is a reaction the reader can leave on a block.
type EmojiKind struct {
	Name  string `json:"name"`
	Glyph string `json:"glyph"`
}

// EmojiKinds is the fixed reaction palette in display order.
var EmojiKinds = []EmojiKind{
	{Name: "heart", Glyph: "❤️"},
	{Name: "pray", Glyph: "🙏"},
	{Name: "fire", Glyph: "🔥"},
	{Name: "smile", Glyph: "😊"},
	{Name: "star", Glyph: "⭐"},
	{Name: "think", Glyph: "🤔"},
	{Name: "clap", Glyph: "👏"},
	{Name: "cry", Glyph: "😢"},
}

var emojiByGlyph = func() map[string]string {
	m := make(map[string]string, len(EmojiKinds))
	for _, k := range EmojiKinds {
		m[NormalizeEmoji(k.Glyph)] = k.Name
	}
	return m
}()

// NormalizeEmoji returns the canonical stored form of an emoji: NFC with
// presentation selectors removed.
func NormalizeEmoji(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return strings.ReplaceAll(s, variationSelector16, "")
}

// EmojiName returns the palette name for a glyph or a name.
func EmojiName(s string) (string, bool) {
	if name, ok := emojiByGlyph[NormalizeEmoji(s)]; ok {
		return name, true
	}
	for _, k := range EmojiKinds {
		if k.Name == s {
			return k.Name, true
		}
	}
	return "", false
}

// EmojiStats counts reactions by palette name.
type EmojiStats map[string]int

// NewEmojiStats returns stats with every palette entry present at zero.
func NewEmojiStats() EmojiStats {
	s := make(EmojiStats, len(EmojiKinds))
	for _, k := range EmojiKinds {
		s[k.Name] = 0
	}
	return s
}

// EmojiCollection reports which palette entries have been used at least once.
type EmojiCollection struct {
	Collected []string `json:"collected"`
	Missing   []string `json:"missing"`
	Complete  bool     `json:"complete"`
}

// Collection derives the collection state in palette order.
func (s EmojiStats) Collection() EmojiCollection {
	c := EmojiCollection{Collected: []string{}, Missing: []string{}}
	for _, k := range EmojiKinds {
		if s[k.Name] > 0 {
			c.Collected = append(c.Collected, k.Name)
		} else {
			c.Missing = append(c.Missing, k.Name)
		}
	}
	c.Complete = len(c.Missing) == 0
	return c
}

// Reaction is an emoji left on a content block. At most one reaction per
// (block, emoji).
type Reaction struct {
	ID        string    `json:"id"`
	SegmentID string    `json:"segment_id"`
	BlockID   string    `json:"block_id"`
	Emoji     string    `json:"emoji"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
