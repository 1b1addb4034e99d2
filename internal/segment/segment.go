// Package segment cuts a flat page sequence into chapters using the
// document's table of contents.
package segment

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/bookdigest/internal/doctree"
)

// HeadSlack is how many characters past the title length a page head may
// run before the title words must have appeared.
const HeadSlack = 4

// MatchFunc reports whether a page starts the chapter named title.
type MatchFunc func(pageText, title string) bool

// HeadMatch matches when every word of title occurs somewhere in the first
// len(title)+HeadSlack characters of the page. Word order is ignored so
// that markup noise and line breaks at the page head do not matter.
func HeadMatch(pageText, title string) bool {
	window := headRunes(pageText, utf8.RuneCountInString(title)+HeadSlack)
	for _, w := range strings.Fields(title) {
		if !strings.Contains(window, w) {
			return false
		}
	}
	return true
}

func headRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// ErrEmptyTOC is returned when there are no entries to segment by.
var ErrEmptyTOC = errors.New("table of contents is empty")

// UnmatchedError is returned in strict mode when no page matched a chapter heading.
type UnmatchedError struct {
	Index int
	Title string
}

func (e *UnmatchedError) Error() string {
	return fmt.Sprintf("chapter %d (%q): no page matches its heading", e.Index, e.Title)
}

// Segmenter partitions pages by TOC entries with a single forward cursor.
type Segmenter struct {
	// Match decides whether a page opens a chapter. Defaults to HeadMatch.
	Match MatchFunc
	// Strict turns an unmatched chapter heading into an error instead of an
	// empty chapter.
	Strict bool
}

// Segment assigns every page between the page matching entry i and the page
// matching entry i+1 to chapter i. The last chapter takes all remaining pages.
func (s Segmenter) Segment(toc []doctree.TOCEntry, pages []doctree.Page) (*ChapterContent, error) {
	if len(toc) == 0 {
		return nil, ErrEmptyTOC
	}
	match := s.Match
	if match == nil {
		match = HeadMatch
	}

	out := NewChapterContent()
	idx := 0

	for i := 0; i < len(toc)-1; i++ {
		title, next := toc[i].Title, toc[i+1].Title

		for idx < len(pages) && !match(pages[idx].Text, title) {
			idx++
		}
		if idx == len(pages) && s.Strict {
			return nil, &UnmatchedError{Index: i, Title: title}
		}

		var content strings.Builder
		for idx < len(pages) && !match(pages[idx].Text, next) {
			content.WriteString(pages[idx].Text)
			idx++
		}
		out.Set(title, content.String())
	}

	var tail strings.Builder
	for ; idx < len(pages); idx++ {
		tail.WriteString(pages[idx].Text)
	}
	out.Set(toc[len(toc)-1].Title, tail.String())

	return out, nil
}
