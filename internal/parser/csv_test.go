package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

func TestCSVParser_RowsToParagraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "header pairs",
			input: "name,role\nAda,engineer\n",
			want:  []string{"<p><b>name</b>: Ada, <b>role</b>: engineer</p>"},
		},
		{
			name:  "cells escaped",
			input: "name,role\nBob,<admin>\n",
			want:  []string{"<p><b>name</b>: Bob, <b>role</b>: &lt;admin&gt;</p>"},
		},
		{
			name:  "extra cells without header",
			input: "a\n1,2\n",
			want:  []string{"<p><b>a</b>: 1, 2</p>"},
		},
		{
			name:  "short row",
			input: "a,b,c\n1\n",
			want:  []string{"<p><b>a</b>: 1</p>"},
		},
		{
			name:  "quoted comma and leading space",
			input: "city, note\n\"Paris, FR\", capital\n",
			want:  []string{"<p><b>city</b>: Paris, FR, <b>note</b>: capital</p>"},
		},
		{
			name:  "header only",
			input: "name,role\n",
			want:  nil,
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &CSVParser{}
			root, err := p.Parse(strings.NewReader(tt.input), "data.csv")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(root.Children) != len(tt.want) {
				t.Fatalf("expected %d rows, got %d", len(tt.want), len(root.Children))
			}
			for i, want := range tt.want {
				if got := doctree.Render(root.Children[i]); got != want {
					t.Errorf("row %d: expected %q, got %q", i, want, got)
				}
			}
		})
	}
}

func TestCSVParser_RowOrder(t *testing.T) {
	p := &CSVParser{}
	root, err := p.Parse(strings.NewReader("n\n1\n2\n3\n"), "n.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := doctree.Render(root)
	want := "<p><b>n</b>: 1</p><p><b>n</b>: 2</p><p><b>n</b>: 3</p>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
