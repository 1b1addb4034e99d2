// Package parser reads uploaded files into a table of contents plus the
// ordered page blocks chapters are cut from.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/bookdigest/internal/doctree"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".xhtml":    true,
	".pdf":      true,
	".docx":     true,
	".epub":     true,
}

// Options tune parser selection.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	return ForFileWith(filename, Options{})
}

// ForFileWith is ForFile with explicit options.
func ForFileWith(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm", ".xhtml":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".epub":
		return &EPUBParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// baseTitle is the file name without directory or extension.
func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sectionBuilder turns a stream of headings and text blocks into a
// Document. Every heading opens a new page whose text starts with the
// heading, so the segmenter finds it at the page head.
type sectionBuilder struct {
	doc     *doctree.Document
	current strings.Builder
}

func newSectionBuilder(title string) *sectionBuilder {
	return &sectionBuilder{doc: &doctree.Document{Title: title}}
}

func (b *sectionBuilder) heading(level int, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	b.flush()
	b.doc.TOC = append(b.doc.TOC, doctree.TOCEntry{
		Level:      level,
		Title:      title,
		PageAnchor: len(b.doc.Pages),
	})
	b.current.WriteString(title)
}

func (b *sectionBuilder) text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if b.current.Len() > 0 {
		b.current.WriteString("\n\n")
	}
	b.current.WriteString(t)
}

// flush closes the current page. Pages end with a blank line so that
// concatenated chapter text keeps paragraph breaks.
func (b *sectionBuilder) flush() {
	if strings.TrimSpace(b.current.String()) != "" {
		b.doc.Pages = append(b.doc.Pages, doctree.Page{Text: b.current.String() + "\n\n"})
	}
	b.current.Reset()
}

func (b *sectionBuilder) finish() *doctree.Document {
	b.flush()
	b.doc.EnsureTOC()
	return b.doc
}
