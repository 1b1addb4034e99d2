package doctree

// Document is the reader's view of an uploaded file: a table of contents
// and the flat, ordered page blocks the chapters are cut from.
type Document struct {
	Title string     // Document title (from metadata or filename)
	TOC   []TOCEntry // Chapter boundaries in document order
	Pages []Page     // Page-level text blocks in reading order
}

// TOCEntry is one line of a table of contents.
type TOCEntry struct {
	Level      int    // Nesting depth, 1 for top-level entries
	Title      string // Heading text as rendered in the TOC
	PageAnchor int    // Page/spine index the entry points at (0 if unknown)
}

// Page is a single page-level text block. Its index in Document.Pages is
// its only position information.
type Page struct {
	Text string
}

// PageTexts returns the text of every page, in order.
func (d *Document) PageTexts() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Text
	}
	return out
}

// FullText concatenates all page texts without separators.
func (d *Document) FullText() string {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Text)
	}
	buf := make([]byte, 0, n)
	for _, p := range d.Pages {
		buf = append(buf, p.Text...)
	}
	return string(buf)
}

// EnsureTOC gives documents without any headings a single entry named
// after the document so they can still be segmented.
func (d *Document) EnsureTOC() {
	if len(d.TOC) == 0 {
		d.TOC = []TOCEntry{{Level: 1, Title: d.Title}}
	}
}
