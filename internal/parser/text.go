package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/bookdigest/internal/doctree"
)

// TextParser handles plain text files. Paragraphs become pages and the
// document gets a single chapter named after the file.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := newSectionBuilder(baseTitle(filename))
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				b.text(current.String())
				b.flush()
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current.Len() > 0 {
		b.text(current.String())
	}

	return b.finish(), nil
}
