package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

func TestPagesToTree(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "paragraphs per page",
			text: "Page one.\n\nSecond para.\fPage two.",
			want: `<div class="page" data-page="1"><p>Page one.</p><p>Second para.</p></div>` +
				`<div class="page" data-page="2"><p>Page two.</p></div>`,
		},
		{
			name: "blank page keeps numbering",
			text: "First\f  \n \fThird",
			want: `<div class="page" data-page="1"><p>First</p></div>` +
				`<div class="page" data-page="3"><p>Third</p></div>`,
		},
		{
			name: "trailing form feeds",
			text: "Only\f\f",
			want: `<div class="page" data-page="1"><p>Only</p></div>`,
		},
		{
			name: "single newlines stay in paragraph",
			text: "line one\nline two\n\n\n\nnext",
			want: `<div class="page" data-page="1"><p>line one` + "\n" + `line two</p><p>next</p></div>`,
		},
		{
			name: "text escaped",
			text: "a < b & c",
			want: `<div class="page" data-page="1"><p>a &lt; b &amp; c</p></div>`,
		},
		{
			name: "empty",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doctree.Render(pagesToTree(tt.text)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPDFParser_RejectsNonPDF(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(strings.NewReader("plain text, not a pdf"), "notes.pdf")
	if err == nil {
		t.Fatal("expected error for non-PDF input")
	}
	if !strings.Contains(err.Error(), "extract pdf text") {
		t.Errorf("expected wrapped extract error, got %v", err)
	}
}
