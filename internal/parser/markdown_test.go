package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingsBecomeTOC(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", doc.Title)
	}

	wantTOC := []struct {
		title  string
		level  int
		anchor int
	}{
		{"Title", 1, 0},
		{"Section A", 2, 1},
		{"Subsection A1", 3, 2},
		{"Section B", 2, 3},
	}
	if len(doc.TOC) != len(wantTOC) {
		t.Fatalf("expected %d TOC entries, got %d: %+v", len(wantTOC), len(doc.TOC), doc.TOC)
	}
	for i, w := range wantTOC {
		got := doc.TOC[i]
		if got.Title != w.title || got.Level != w.level || got.PageAnchor != w.anchor {
			t.Errorf("toc[%d]: expected %+v, got %+v", i, w, got)
		}
	}

	if len(doc.Pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Text != "Title\n\nIntro text.\n\n" {
		t.Errorf("unexpected first page %q", doc.Pages[0].Text)
	}
	if !strings.HasPrefix(doc.Pages[1].Text, "Section A") {
		t.Errorf("expected page to start with its heading, got %q", doc.Pages[1].Text)
	}
	if !strings.Contains(doc.Pages[3].Text, "Section B content.") {
		t.Errorf("expected section B text, got %q", doc.Pages[3].Text)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page for headingless markdown, got %d", len(doc.Pages))
	}
	text := doc.Pages[0].Text
	if !strings.Contains(text, "Just some plain text.") || !strings.Contains(text, "Another paragraph here.") {
		t.Errorf("expected both paragraphs, got %q", text)
	}
	if len(doc.TOC) != 1 || doc.TOC[0].Title != "plain" {
		t.Errorf("expected fallback TOC entry %q, got %+v", "plain", doc.TOC)
	}
}

func TestMarkdownParser_MixedContentWithCodeBlocks(t *testing.T) {
	input := "# API Reference\n\nSome intro.\n\n## Endpoints\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}

	endpoints := doc.Pages[1].Text
	if !strings.Contains(endpoints, "GET /api/users") {
		t.Errorf("expected code block content in text, got %q", endpoints)
	}
	if !strings.Contains(endpoints, "More text after code.") {
		t.Errorf("expected post-code text, got %q", endpoints)
	}
	if strings.Count(endpoints, "List of endpoints:") != 1 {
		t.Errorf("paragraph text must appear once, got %q", endpoints)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"dir/plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		doc, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if doc.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, doc.Title)
		}
	}
}
