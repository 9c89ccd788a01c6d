package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/msgsplit/internal/doctree"
	"github.com/yuin/goldmark"
)

// MarkdownParser handles Markdown files by rendering them to HTML with goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return ParseHTML(&buf)
}
