package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/msgsplit/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	return ParseHTML(r)
}

// ParseHTML parses markup as the content of a <body> element, so message
// snippets are not wrapped in html/head/body. Comments and doctypes are dropped.
func ParseHTML(r io.Reader) (*doctree.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	root := doctree.Document()
	for _, n := range nodes {
		if c := convert(n); c != nil {
			root.Children = append(root.Children, c)
		}
	}
	return root, nil
}

// convert copies an x/net/html subtree into a doctree subtree.
func convert(n *html.Node) *doctree.Node {
	switch n.Type {
	case html.TextNode:
		return doctree.Text(n.Data)
	case html.ElementNode:
		el := doctree.Element(strings.ToLower(n.Data), nil)
		if len(n.Attr) > 0 {
			el.Attrs = make([]doctree.Attr, 0, len(n.Attr))
			for _, a := range n.Attr {
				el.Attrs = append(el.Attrs, doctree.Attr{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if cc := convert(c); cc != nil {
				el.Children = append(el.Children, cc)
			}
		}
		return el
	case html.DocumentNode:
		doc := doctree.Document()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if cc := convert(c); cc != nil {
				doc.Children = append(doc.Children, cc)
			}
		}
		return doc
	}
	return nil
}
