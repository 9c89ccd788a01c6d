package fragmenter

import (
	"sort"
	"strings"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

// defaultBlockTags are the elements that may span a fragment boundary.
var defaultBlockTags = []string{"p", "b", "strong", "i", "ul", "ol", "div", "span"}

// BlockSet classifies element tags as block (reopenable across a split) or atomic.
// The zero value classifies nothing as block. A BlockSet is never mutated after
// construction and is safe to share between concurrent runs.
type BlockSet struct {
	tags map[string]bool
}

// DefaultBlocks returns the default block set.
func DefaultBlocks() BlockSet {
	return NewBlockSet(defaultBlockTags...)
}

// NewBlockSet builds a block set from tag names. Names are matched case-insensitively.
func NewBlockSet(tags ...string) BlockSet {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			m[t] = true
		}
	}
	return BlockSet{tags: m}
}

// ParseBlockSet parses a comma-separated tag list such as "p,div,ul".
// Every entry must be a valid tag name.
func ParseBlockSet(list string) (BlockSet, error) {
	var tags []string
	for _, t := range strings.Split(list, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !validTagName(t) {
			return BlockSet{}, &ConfigError{Field: "block_tags", Reason: "invalid tag name " + `"` + t + `"`}
		}
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return BlockSet{}, &ConfigError{Field: "block_tags", Reason: "no tag names given"}
	}
	return NewBlockSet(tags...), nil
}

// With returns a copy of the set extended with tags.
func (b BlockSet) With(tags ...string) BlockSet {
	return NewBlockSet(append(b.Tags(), tags...)...)
}

// IsBlock reports whether tag may be split and reopened. Void and raw-text
// elements are never block.
func (b BlockSet) IsBlock(tag string) bool {
	tag = strings.ToLower(tag)
	if doctree.IsVoid(tag) || doctree.IsRawText(tag) {
		return false
	}
	return b.tags[tag]
}

// Tags returns the tag names in sorted order.
func (b BlockSet) Tags() []string {
	out := make([]string, 0, len(b.tags))
	for t := range b.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tags in the set.
func (b BlockSet) Len() int {
	return len(b.tags)
}

// minPairLen is the length of the shortest open+close pair among block tags.
func (b BlockSet) minPairLen() int {
	best := 0
	for t := range b.tags {
		if !b.IsBlock(t) {
			continue
		}
		n := doctree.Len(doctree.OpenTag(t, nil)) + doctree.Len(doctree.CloseTag(t))
		if best == 0 || n < best {
			best = n
		}
	}
	return best
}

func validTagName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return s != ""
}
