package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/bookdigest/internal/doctree"
)

// PDFParser handles PDF files. Every PDF page is a page block and the
// outline, when present, is the TOC. It tries the Go library first, then
// falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "bookdigest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, toc, err := extractPDF(tmpPath)
	if err != nil && p.FallbackPdftotext {
		var text string
		text, err = extractPdftotext(tmpPath)
		pages = splitPages(text)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	doc := &doctree.Document{Title: baseTitle(filename), TOC: toc}
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		doc.Pages = append(doc.Pages, doctree.Page{Text: page})
	}
	doc.EnsureTOC()
	return doc, nil
}

func extractPDF(path string) ([]string, []doctree.TOCEntry, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages, outlineTOC(reader.Outline().Child, 1), nil
}

// outlineTOC flattens a PDF outline depth-first. Outline entries carry no
// resolved page number, so anchors are left at 0.
func outlineTOC(items []pdflib.Outline, level int) []doctree.TOCEntry {
	var out []doctree.TOCEntry
	for _, it := range items {
		if title := strings.TrimSpace(it.Title); title != "" {
			out = append(out, doctree.TOCEntry{Level: level, Title: title})
		}
		out = append(out, outlineTOC(it.Child, level+1)...)
	}
	return out
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// splitPages splits pdftotext output on form feeds.
func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
