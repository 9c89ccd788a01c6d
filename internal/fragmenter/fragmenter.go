// Package fragmenter splits a parsed HTML document into length-bounded
// fragments that are each well-formed on their own.
//
// Block elements cut by a fragment boundary are closed at the end of one
// fragment and reopened, with the same attributes, at the start of the next.
// Everything else is an atomic unit that is moved whole to the next fragment
// when it does not fit. Text wraps at whitespace.
package fragmenter

import (
	"fmt"
	"strings"

	"github.com/dgallion1/msgsplit/internal/doctree"
	"github.com/dgallion1/msgsplit/internal/parser"
)

const (
	DefaultMaxLen   = 4096
	DefaultMaxDepth = 512
)

// Options controls a fragmentation run.
type Options struct {
	MaxLen   int      // Maximum fragment length in characters.
	Blocks   BlockSet // Elements that may be reopened across a split.
	MaxDepth int      // Block nesting deeper than this is placed atomically. Zero selects DefaultMaxDepth.
	Strict   bool     // Fail with *OverflowError instead of flagging oversized fragments.
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		MaxLen:   DefaultMaxLen,
		Blocks:   DefaultBlocks(),
		MaxDepth: DefaultMaxDepth,
	}
}

// WithMaxDepth returns o with an explicitly requested depth limit. Unlike the
// zero value of MaxDepth, an explicit 0 disables block splitting: every
// element is placed whole.
func (o Options) WithMaxDepth(n int) Options {
	if n == 0 {
		o.Blocks = NewBlockSet()
		o.MaxDepth = DefaultMaxDepth
		return o
	}
	o.MaxDepth = n
	return o
}

func (o Options) withDefaults() Options {
	if o.Blocks.tags == nil {
		o.Blocks = DefaultBlocks()
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// Validate rejects options that can never admit content.
func (o Options) Validate() error {
	if o.MaxLen <= 0 {
		return &ConfigError{Field: "max_len", Reason: fmt.Sprintf("must be positive, got %d", o.MaxLen)}
	}
	if o.MaxDepth < 0 {
		return &ConfigError{Field: "max_depth", Reason: fmt.Sprintf("must not be negative, got %d", o.MaxDepth)}
	}
	for _, t := range o.Blocks.Tags() {
		if !validTagName(t) {
			return &ConfigError{Field: "block_tags", Reason: fmt.Sprintf("invalid tag name %q", t)}
		}
	}
	if min := o.Blocks.minPairLen(); min > 0 && o.MaxLen < min {
		return &ConfigError{
			Field:  "max_len",
			Reason: fmt.Sprintf("%d is shorter than the smallest block element (%d chars)", o.MaxLen, min),
		}
	}
	return nil
}

// SplitHTML parses src and splits it.
func SplitHTML(src string, opts Options) (doctree.Sequence, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	root, err := parser.ParseHTML(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	return Split(root, opts)
}

// Split walks root in document order and returns its fragments. Empty or
// whitespace-only input yields no fragments. The tree is not modified.
func Split(root *doctree.Node, opts Options) (doctree.Sequence, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if root == nil || root.IsEmpty() {
		return nil, nil
	}
	if root.Type != doctree.DocumentNode {
		root = doctree.Document(root)
	}

	f := &fragmenter{opts: opts}
	f.walk(root)
	f.flush()

	if opts.Strict {
		for _, fr := range f.out {
			if fr.Overflow {
				return nil, &OverflowError{Fragment: fr.Index, Length: fr.Length, MaxLen: opts.MaxLen}
			}
		}
	}
	return f.out, nil
}

// openTag is one entry of the open block stack.
type openTag struct {
	open     string
	close    string
	openLen  int
	closeLen int

	// Position of the opening tag within the current fragment.
	start    int // byte offset of the tag
	end      int // byte offset just past the tag
	startLen int // fragment length before the tag
	reopened bool
}

// frame is one level of the explicit walk stack.
type frame struct {
	node *doctree.Node
	next int
	open bool // frame owns an entry on the open block stack
}

type fragmenter struct {
	opts  Options
	out   doctree.Sequence
	stack []openTag

	buf      []byte
	length   int  // characters in buf
	closeLen int  // characters needed to close every open block
	content  bool // buf holds something beyond bare opening tags
	overflow bool
}

func (f *fragmenter) walk(root *doctree.Node) {
	frames := []frame{{node: root}}
	for len(frames) > 0 {
		top := &frames[len(frames)-1]
		if top.next == len(top.node.Children) {
			if top.open {
				f.closeBlock()
			}
			frames = frames[:len(frames)-1]
			continue
		}
		child := top.node.Children[top.next]
		top.next++
		parent := top.node.Tag

		switch child.Type {
		case doctree.TextNode:
			f.placeText(child.Text, parent)
		case doctree.ElementNode:
			markup := doctree.Render(child)
			if !f.opts.Blocks.IsBlock(child.Tag) || len(f.stack) >= f.opts.MaxDepth || doctree.Len(markup) <= f.remaining() {
				f.placeUnit(markup)
				continue
			}
			f.openBlock(child)
			frames = append(frames, frame{node: child, open: true})
		default:
			frames = append(frames, frame{node: child})
		}
	}
}

// remaining is the budget left once every open block is closed. It is
// negative after an overflow.
func (f *fragmenter) remaining() int {
	return f.opts.MaxLen - f.length - f.closeLen
}

func (f *fragmenter) write(s string, n int) {
	f.buf = append(f.buf, s...)
	f.length += n
}

// placeText appends text, wrapping at whitespace into as many fragments as needed.
func (f *fragmenter) placeText(text, parent string) {
	for text != "" {
		markup := doctree.TextMarkup(text, parent)
		if n := doctree.Len(markup); n <= f.remaining() {
			f.write(markup, n)
			if !isBlank(text) {
				f.content = true
			}
			return
		}
		if isBlank(text) {
			// Whitespace that does not fit ends up on a boundary.
			return
		}
		if prefix, rest, ok := splitText(text, parent, f.remaining()); ok {
			markup = doctree.TextMarkup(prefix, parent)
			f.write(markup, doctree.Len(markup))
			f.content = true
			f.flush()
			text = rest
			continue
		}
		if f.content {
			f.flush()
			text = strings.TrimLeft(text, spaces)
			continue
		}
		// Not even the first word fits an empty fragment.
		word, rest := firstWord(text)
		markup = doctree.TextMarkup(word, parent)
		f.write(markup, doctree.Len(markup))
		f.content = true
		f.overflow = true
		text = rest
	}
}

// placeUnit appends an indivisible piece of markup.
func (f *fragmenter) placeUnit(markup string) {
	n := doctree.Len(markup)
	for {
		if n <= f.remaining() {
			f.write(markup, n)
			f.content = true
			return
		}
		if !f.content {
			f.write(markup, n)
			f.content = true
			f.overflow = true
			return
		}
		f.flush()
	}
}

// openBlock writes the opening tag of n and pushes it on the open stack.
func (f *fragmenter) openBlock(n *doctree.Node) {
	openLen, closeLen := TagCost(n.Tag, n.Attrs)
	for openLen+closeLen > f.remaining() && f.content {
		f.flush()
	}
	if openLen+closeLen > f.remaining() {
		f.overflow = true
	}
	e := openTag{
		open:     doctree.OpenTag(n.Tag, n.Attrs),
		close:    doctree.CloseTag(n.Tag),
		openLen:  openLen,
		closeLen: closeLen,
		start:    len(f.buf),
		startLen: f.length,
	}
	f.write(e.open, openLen)
	e.end = len(f.buf)
	f.closeLen += closeLen
	f.stack = append(f.stack, e)
}

// closeBlock pops the innermost open block. A block reopened in this fragment
// is dropped rather than closed when nothing or only whitespace follows it.
func (f *fragmenter) closeBlock() {
	e := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	f.closeLen -= e.closeLen
	if e.reopened && (e.end == len(f.buf) || !f.content) {
		f.buf = f.buf[:e.start]
		f.length = e.startLen
		return
	}
	f.write(e.close, e.closeLen)
	f.content = true
}

// flush finalizes the current fragment and starts the next one with every
// open block reopened, outermost first.
func (f *fragmenter) flush() {
	keep := f.rollback()
	if f.content {
		var sb strings.Builder
		sb.Grow(len(f.buf) + f.closeLen)
		sb.Write(f.buf)
		length := f.length
		for i := keep - 1; i >= 0; i-- {
			sb.WriteString(f.stack[i].close)
			length += f.stack[i].closeLen
		}
		f.out = append(f.out, doctree.Fragment{
			Index:    len(f.out) + 1,
			Markup:   sb.String(),
			Length:   length,
			Overflow: f.overflow || length > f.opts.MaxLen,
		})
	}

	f.buf = f.buf[:0]
	f.length = 0
	f.content = false
	f.overflow = false
	for i := range f.stack {
		e := &f.stack[i]
		e.start, e.startLen = len(f.buf), f.length
		f.write(e.open, e.openLen)
		e.end = len(f.buf)
		e.reopened = true
	}
}

// rollback removes trailing opening tags that have nothing after them and
// returns how many open blocks are still present in the buffer. The removed
// blocks stay on the stack and are reopened in the next fragment.
func (f *fragmenter) rollback() int {
	keep := len(f.stack)
	cut, cutLen := len(f.buf), f.length
	for i := len(f.stack) - 1; i >= 0; i-- {
		if f.stack[i].end != cut {
			break
		}
		cut, cutLen = f.stack[i].start, f.stack[i].startLen
		keep = i
	}
	f.buf = f.buf[:cut]
	f.length = cutLen
	return keep
}

const spaces = " \t\n\r\f"

func isSpaceByte(c byte) bool {
	return strings.IndexByte(spaces, c) >= 0
}

func isBlank(s string) bool {
	return strings.Trim(s, spaces) == ""
}

// splitText returns the longest prefix of text that ends at a word boundary and
// fits budget. The whitespace at the split point is dropped.
func splitText(text, parent string, budget int) (prefix, rest string, ok bool) {
	best, cost := 0, 0
	for i := 0; i < len(text); {
		j := i
		for j < len(text) && isSpaceByte(text[j]) {
			j++
		}
		k := j
		for k < len(text) && !isSpaceByte(text[k]) {
			k++
		}
		if k == j {
			break
		}
		cost += textCost(text[i:k], parent)
		if cost > budget {
			break
		}
		best = k
		i = k
	}
	if best == 0 {
		return "", "", false
	}
	return text[:best], strings.TrimLeft(text[best:], spaces), true
}

// firstWord splits off any leading whitespace plus the first word.
func firstWord(text string) (word, rest string) {
	i := 0
	for i < len(text) && isSpaceByte(text[i]) {
		i++
	}
	for i < len(text) && !isSpaceByte(text[i]) {
		i++
	}
	return text[:i], text[i:]
}
