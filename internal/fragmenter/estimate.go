package fragmenter

import "github.com/dgallion1/msgsplit/internal/doctree"

// EstimateLen returns the serialized length of n. It measures the exact output
// of doctree.Render, which is also what fragments are built from.
func EstimateLen(n *doctree.Node) int {
	return doctree.RenderedLen(n)
}

// TagCost returns the lengths of an element's opening and closing tags alone.
func TagCost(tag string, attrs []doctree.Attr) (open, close int) {
	return doctree.Len(doctree.OpenTag(tag, attrs)), doctree.Len(doctree.CloseTag(tag))
}

// textCost is the serialized length of text placed inside parent.
func textCost(text, parent string) int {
	return doctree.Len(doctree.TextMarkup(text, parent))
}
