package fragmenter

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultBlocks(t *testing.T) {
	b := DefaultBlocks()
	for _, tag := range []string{"p", "b", "strong", "i", "ul", "ol", "div", "span"} {
		if !b.IsBlock(tag) {
			t.Errorf("expected %q to be block", tag)
		}
	}
	for _, tag := range []string{"li", "a", "code", "pre", "table", ""} {
		if b.IsBlock(tag) {
			t.Errorf("expected %q to be atomic", tag)
		}
	}
}

func TestBlockSet_CaseInsensitive(t *testing.T) {
	b := NewBlockSet("DIV", " P ")
	if !b.IsBlock("div") || !b.IsBlock("Div") || !b.IsBlock("p") {
		t.Errorf("expected case-insensitive match, got tags %v", b.Tags())
	}
}

func TestBlockSet_VoidAndRawTextNeverBlock(t *testing.T) {
	b := NewBlockSet("br", "img", "script", "style", "p")
	for _, tag := range []string{"br", "img", "script", "style"} {
		if b.IsBlock(tag) {
			t.Errorf("expected %q to be atomic", tag)
		}
	}
	if !b.IsBlock("p") {
		t.Error("expected p to be block")
	}
}

func TestBlockSet_With(t *testing.T) {
	base := NewBlockSet("p")
	ext := base.With("blockquote")
	if base.IsBlock("blockquote") {
		t.Error("expected base set unchanged")
	}
	if !ext.IsBlock("blockquote") || !ext.IsBlock("p") {
		t.Errorf("expected extended set, got %v", ext.Tags())
	}
	if ext.Len() != 2 {
		t.Errorf("expected 2 tags, got %d", ext.Len())
	}
}

func TestParseBlockSet(t *testing.T) {
	b, err := ParseBlockSet("p, div,,UL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(b.Tags(), ","); got != "div,p,ul" {
		t.Errorf("expected div,p,ul, got %s", got)
	}

	for _, bad := range []string{"", " , ", "p,<x>", "1p"} {
		if _, err := ParseBlockSet(bad); !errors.Is(err, ErrConfig) {
			t.Errorf("ParseBlockSet(%q): expected ErrConfig, got %v", bad, err)
		}
	}
}

func TestTagCost(t *testing.T) {
	open, closing := TagCost("div", nil)
	if open != 5 || closing != 6 {
		t.Errorf("expected 5/6, got %d/%d", open, closing)
	}
	open, closing = TagCost("br", nil)
	if open != 5 || closing != 0 {
		t.Errorf("expected 5/0 for void element, got %d/%d", open, closing)
	}
}
