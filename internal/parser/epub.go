package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"

	"github.com/dgallion1/bookdigest/internal/doctree"
)

// EPUBParser handles EPUB files. Each spine item is one page and the NCX
// navigation map is the TOC.
type EPUBParser struct{}

// NCX XML structures for parsing toc.ncx.
type ncx struct {
	NavMap struct {
		NavPoints []navPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type navPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

func (p *EPUBParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// Both goreader and the NCX lookup want random access to the archive.
	tmp, err := os.CreateTemp("", "bookdigest-epub-*.epub")
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

	rc, err := epub.OpenReader(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]

	doc := &doctree.Document{Title: strings.TrimSpace(book.Title)}
	if doc.Title == "" {
		doc.Title = baseTitle(filename)
	}

	spineIndex := make(map[string]int)
	for i, ref := range book.Spine.Itemrefs {
		// Keep one page per spine item so TOC anchors line up with page indices.
		var text string
		if ref.Item != nil {
			spineIndex[ref.Item.HREF] = i
			spineIndex[path.Base(ref.Item.HREF)] = i
			text, err = readSpineItem(ref.Item)
			if err != nil {
				return nil, fmt.Errorf("read spine item %s: %w", ref.Item.HREF, err)
			}
		}
		if text != "" {
			text += "\n\n"
		}
		doc.Pages = append(doc.Pages, doctree.Page{Text: text})
	}

	if data, err := readNCX(tmpPath, book); err == nil {
		var toc ncx
		if err := xml.Unmarshal(data, &toc); err != nil {
			return nil, fmt.Errorf("parse ncx: %w", err)
		}
		doc.TOC = flattenNavPoints(toc.NavMap.NavPoints, spineIndex, 1)
	}

	doc.EnsureTOC()
	return doc, nil
}

func readSpineItem(item *epub.Item) (string, error) {
	r, err := item.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return htmlText(r)
}

// flattenNavPoints lists nav points depth-first; level starts at 1.
func flattenNavPoints(points []navPoint, spineIndex map[string]int, level int) []doctree.TOCEntry {
	var entries []doctree.TOCEntry
	for _, np := range points {
		href, _, _ := strings.Cut(np.Content.Src, "#")
		anchor, ok := spineIndex[href]
		if !ok {
			anchor = spineIndex[path.Base(href)]
		}
		if title := strings.Join(strings.Fields(np.Label.Text), " "); title != "" {
			entries = append(entries, doctree.TOCEntry{Level: level, Title: title, PageAnchor: anchor})
		}
		entries = append(entries, flattenNavPoints(np.Children, spineIndex, level+1)...)
	}
	return entries
}

// readNCX finds the NCX named in the manifest, or any .ncx file, in the archive.
func readNCX(filename string, book *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	for _, f := range zr.File {
		match := strings.HasSuffix(strings.ToLower(f.Name), ".ncx")
		if ncxPath != "" {
			match = f.Name == ncxPath || path.Base(f.Name) == path.Base(ncxPath)
		}
		if !match {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("no NCX file found in epub")
}
