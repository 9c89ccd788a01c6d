package doctree

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Elements with no closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// Elements whose text children are written without escaping.
var rawTextElements = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true,
	"plaintext": true, "script": true, "style": true, "xmp": true,
}

// IsVoid reports whether tag never has a closing tag.
func IsVoid(tag string) bool {
	return voidElements[strings.ToLower(tag)]
}

// IsRawText reports whether tag holds unescaped text.
func IsRawText(tag string) bool {
	return rawTextElements[strings.ToLower(tag)]
}

// Len is the length measure used for every budget decision: Unicode code points.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// EscapeText escapes s for use as element text or an attribute value.
func EscapeText(s string) string {
	return html.EscapeString(s)
}

// TextMarkup returns text as it is serialized inside an element named parent.
func TextMarkup(text, parent string) string {
	if IsRawText(parent) {
		return text
	}
	return EscapeText(text)
}

// OpenTag serializes the opening tag of an element.
func OpenTag(tag string, attrs []Attr) string {
	var sb strings.Builder
	writeOpenTag(&sb, tag, attrs)
	return sb.String()
}

// CloseTag serializes the closing tag of an element. Void elements have none.
func CloseTag(tag string) string {
	if IsVoid(tag) {
		return ""
	}
	return "</" + tag + ">"
}

// Render serializes n and its subtree.
func Render(n *Node) string {
	var sb strings.Builder
	RenderTo(&sb, n)
	return sb.String()
}

// RenderTo serializes n into sb.
func RenderTo(sb *strings.Builder, n *Node) {
	renderNode(sb, n, "")
}

// RenderedLen is the serialized length of n.
func RenderedLen(n *Node) int {
	return Len(Render(n))
}

func renderNode(sb *strings.Builder, n *Node, parent string) {
	switch n.Type {
	case TextNode:
		sb.WriteString(TextMarkup(n.Text, parent))
	case ElementNode:
		writeOpenTag(sb, n.Tag, n.Attrs)
		if IsVoid(n.Tag) {
			return
		}
		for _, c := range n.Children {
			renderNode(sb, c, n.Tag)
		}
		sb.WriteString(CloseTag(n.Tag))
	default:
		for _, c := range n.Children {
			renderNode(sb, c, "")
		}
	}
}

func writeOpenTag(sb *strings.Builder, tag string, attrs []Attr) {
	sb.WriteByte('<')
	sb.WriteString(tag)
	for _, a := range attrs {
		sb.WriteByte(' ')
		if a.Namespace != "" {
			sb.WriteString(a.Namespace)
			sb.WriteByte(':')
		}
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(EscapeText(a.Val))
		sb.WriteByte('"')
	}
	if IsVoid(tag) {
		sb.WriteByte('/')
	}
	sb.WriteByte('>')
}
