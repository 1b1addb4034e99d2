package parser

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

// buildEPUB assembles a minimal EPUB 2 archive with an NCX table of contents.
func buildEPUB(t *testing.T) []byte {
	t.Helper()
	files := []struct{ name, body string }{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`},
		{"OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Short Book</dc:title>
    <dc:identifier id="id">short-book</dc:identifier>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="cover"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`},
		{"OEBPS/toc.ncx", `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="ch1.xhtml"/>
      <navPoint id="p1a" playOrder="2">
        <navLabel><text>A Scene</text></navLabel>
        <content src="ch1.xhtml#scene"/>
      </navPoint>
    </navPoint>
    <navPoint id="p2" playOrder="3">
      <navLabel><text>Chapter Two</text></navLabel>
      <content src="ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`},
		{"OEBPS/cover.xhtml", `<html xmlns="http://www.w3.org/1999/xhtml"><body><p>The Short Book</p></body></html>`},
		{"OEBPS/ch1.xhtml", `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Chapter One</h1><p>It began.</p><p id="scene">A Scene unfolds.</p></body></html>`},
		{"OEBPS/ch2.xhtml", `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Chapter Two</h1><p>It ended.</p></body></html>`},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("zip write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestEPUBParser_SpinePagesAndNCX(t *testing.T) {
	p := &EPUBParser{}
	doc, err := p.Parse(bytes.NewReader(buildEPUB(t)), "short.epub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "The Short Book" {
		t.Errorf("expected title from metadata, got %q", doc.Title)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("expected one page per spine item (3), got %d", len(doc.Pages))
	}
	if !strings.HasPrefix(doc.Pages[1].Text, "Chapter One\nIt began.") {
		t.Errorf("unexpected chapter page %q", doc.Pages[1].Text)
	}

	want := []struct {
		title  string
		level  int
		anchor int
	}{
		{"Chapter One", 1, 1},
		{"A Scene", 2, 1},
		{"Chapter Two", 1, 2},
	}
	if len(doc.TOC) != len(want) {
		t.Fatalf("expected %d TOC entries, got %+v", len(want), doc.TOC)
	}
	for i, w := range want {
		got := doc.TOC[i]
		if got.Title != w.title || got.Level != w.level || got.PageAnchor != w.anchor {
			t.Errorf("toc[%d]: expected %+v, got %+v", i, w, got)
		}
	}
}

func TestEPUBParser_NotAnArchive(t *testing.T) {
	p := &EPUBParser{}
	if _, err := p.Parse(strings.NewReader("not a zip"), "broken.epub"); err == nil {
		t.Fatal("expected error for invalid epub")
	}
}

func TestFlattenNavPoints(t *testing.T) {
	points := []navPoint{{}, {}}
	points[0].Label.Text = "  Part\n One "
	points[0].Content.Src = "text/part1.xhtml#start"
	points[1].Content.Src = "missing.xhtml"

	got := flattenNavPoints(points, map[string]int{"part1.xhtml": 4}, 1)
	if len(got) != 1 {
		t.Fatalf("expected unlabeled nav points to be skipped, got %+v", got)
	}
	if got[0].Title != "Part One" || got[0].PageAnchor != 4 {
		t.Errorf("unexpected entry %+v", got[0])
	}
}
