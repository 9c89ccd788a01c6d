package doctree

// NodeType distinguishes the kinds of nodes in a parsed document.
type NodeType int

const (
	DocumentNode NodeType = iota // Root container, never serialized itself
	ElementNode
	TextNode
)

// Attr is a single element attribute. Attribute order is preserved from the source.
type Attr struct {
	Namespace string
	Key       string
	Val       string
}

// Node is one node of a parsed HTML document. Trees are built once by a parser
// and only read afterwards.
type Node struct {
	Type     NodeType
	Tag      string  // Lowercase element name (ElementNode only)
	Attrs    []Attr  // Element attributes in source order
	Text     string  // Unescaped text content (TextNode only)
	Children []*Node // Ordered children (DocumentNode and ElementNode)
}

// Text returns a new text node.
func Text(s string) *Node {
	return &Node{Type: TextNode, Text: s}
}

// Element returns a new element node.
func Element(tag string, attrs []Attr, children ...*Node) *Node {
	return &Node{Type: ElementNode, Tag: tag, Attrs: attrs, Children: children}
}

// Document returns a new document root holding children.
func Document(children ...*Node) *Node {
	return &Node{Type: DocumentNode, Children: children}
}

// IsEmpty reports whether the document carries no visible content.
func (n *Node) IsEmpty() bool {
	switch n.Type {
	case TextNode:
		for _, r := range n.Text {
			if !isSpace(r) {
				return false
			}
		}
		return true
	case ElementNode:
		return false
	}
	for _, c := range n.Children {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// TextContent concatenates all text below n.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Text
	}
	var buf []byte
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Type == TextNode {
			buf = append(buf, n.Text...)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return string(buf)
}

// Fragment is one finalized, individually well-formed piece of markup.
type Fragment struct {
	Index    int    `json:"index"`    // 1-based position in the sequence
	Markup   string `json:"markup"`
	Length   int    `json:"length"`   // Characters (Unicode code points)
	Overflow bool   `json:"overflow"` // An atomic unit alone exceeded the budget
}

// Sequence is the ordered output of one fragmentation run.
type Sequence []Fragment

// Markups returns just the markup strings in emission order.
func (s Sequence) Markups() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Markup
	}
	return out
}

// Overflowed returns the indexes of fragments flagged with an overflow condition.
func (s Sequence) Overflowed() []int {
	var out []int
	for _, f := range s {
		if f.Overflow {
			out = append(out, f.Index)
		}
	}
	return out
}

// TotalLength sums fragment lengths.
func (s Sequence) TotalLength() int {
	n := 0
	for _, f := range s {
		n += f.Length
	}
	return n
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
