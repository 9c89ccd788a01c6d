package doctree

import "testing"

func TestRender(t *testing.T) {
	tree := Document(
		Element("p", []Attr{{Key: "class", Val: `a"b`}, {Key: "id", Val: "x"}},
			Text("1 < 2 & 3"),
			Element("br", nil),
			Text("next"),
		),
		Element("script", nil, Text("if (a < b) {}")),
	)
	want := `<p class="a&#34;b" id="x">1 &lt; 2 &amp; 3<br/>next</p><script>if (a < b) {}</script>`
	if got := Render(tree); got != want {
		t.Errorf("Render:\n got %s\nwant %s", got, want)
	}
	if got := RenderedLen(tree); got != Len(want) {
		t.Errorf("RenderedLen = %d, want %d", got, Len(want))
	}
}

func TestOpenCloseTag(t *testing.T) {
	if got := OpenTag("div", []Attr{{Namespace: "xlink", Key: "href", Val: "#a"}}); got != `<div xlink:href="#a">` {
		t.Errorf("OpenTag = %q", got)
	}
	if got := CloseTag("div"); got != "</div>" {
		t.Errorf("CloseTag = %q", got)
	}
	if got := CloseTag("IMG"); got != "" {
		t.Errorf("expected no closing tag for void element, got %q", got)
	}
}

func TestLenCountsRunes(t *testing.T) {
	if got := Len("🚀 ж"); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"empty document", Document(), true},
		{"whitespace text", Document(Text(" \n\t")), true},
		{"text", Document(Text(" a ")), false},
		{"empty element", Document(Element("br", nil)), false},
	}
	for _, tt := range tests {
		if got := tt.node.IsEmpty(); got != tt.want {
			t.Errorf("%s: IsEmpty = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSequence(t *testing.T) {
	seq := Sequence{
		{Index: 1, Markup: "<p>a</p>", Length: 8},
		{Index: 2, Markup: "xxxxxxxxxx", Length: 10, Overflow: true},
	}
	if got := seq.Overflowed(); len(got) != 1 || got[0] != 2 {
		t.Errorf("Overflowed = %v", got)
	}
	if got := seq.TotalLength(); got != 18 {
		t.Errorf("TotalLength = %d", got)
	}
	if got := seq.Markups(); len(got) != 2 || got[0] != "<p>a</p>" {
		t.Errorf("Markups = %q", got)
	}
	if got := Element("p", nil, Text("a"), Element("b", nil, Text("c"))).TextContent(); got != "ac" {
		t.Errorf("TextContent = %q", got)
	}
}
