package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/bookdigest/internal/doctree"
)

// HTMLParser handles HTML files. h1-h6 become TOC entries and each heading
// section is a page.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseTitle(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}
	b := newSectionBuilder(title)

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	walkSections(root, b)
	return b.finish(), nil
}

// walkSections feeds headings and block text of n into b.
func walkSections(n *html.Node, b *sectionBuilder) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			b.heading(level, textContent(n))
			return
		}
		switch n.Data {
		case "script", "style", "nav", "footer", "header":
			return
		case "p", "li", "td", "blockquote", "pre":
			b.text(textContent(n))
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkSections(c, b)
	}
}

// htmlText returns the readable body text of an (X)HTML document with a
// line break after every block element.
func htmlText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	root := findBody(doc)
	if root == nil {
		root = doc
	}

	var buf strings.Builder
	atLineStart := true
	newline := func() {
		if !atLineStart {
			buf.WriteByte('\n')
			atLineStart = true
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if !atLineStart {
					buf.WriteByte(' ')
				}
				buf.WriteString(t)
				atLineStart = false
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "br":
				newline()
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			newline()
		}
	}
	walk(root)
	return strings.TrimSpace(buf.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "tr", "blockquote", "pre", "section", "article", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
