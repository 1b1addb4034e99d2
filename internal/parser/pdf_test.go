package parser

import (
	"strings"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

func TestOutlineTOC(t *testing.T) {
	outline := []pdflib.Outline{
		{Title: "Part I", Child: []pdflib.Outline{
			{Title: "Chapter 1"},
			{Title: " "},
			{Title: "Chapter 2"},
		}},
		{Title: "Part II"},
	}
	got := outlineTOC(outline, 1)

	want := []struct {
		title string
		level int
	}{
		{"Part I", 1},
		{"Chapter 1", 2},
		{"Chapter 2", 2},
		{"Part II", 1},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Title != w.title || got[i].Level != w.level {
			t.Errorf("entry %d: expected %+v, got %+v", i, w, got[i])
		}
	}
}

func TestSplitPages(t *testing.T) {
	pages := splitPages("one\ftwo\fthree")
	if len(pages) != 3 || pages[1] != "two" {
		t.Errorf("unexpected pages %q", pages)
	}
}

func TestPDFParser_InvalidInput(t *testing.T) {
	p := &PDFParser{}
	if _, err := p.Parse(strings.NewReader("%PDF-garbage"), "bad.pdf"); err == nil {
		t.Fatal("expected error for invalid pdf")
	}
}
