package segment

// Chapter is one entry of a segmented document.
type Chapter struct {
	Title   string
	Content string
	// Summary is empty until the chapter has been summarized.
	Summary string
}

// ChapterContent maps chapter titles to their text, preserving TOC order.
// It is not safe for concurrent use; the library guards it per document.
type ChapterContent struct {
	order   []string
	byTitle map[string]*Chapter
}

// NewChapterContent returns an empty mapping.
func NewChapterContent() *ChapterContent {
	return &ChapterContent{byTitle: make(map[string]*Chapter)}
}

// Set stores content under title and clears its summary. A repeated title
// keeps its original position.
func (c *ChapterContent) Set(title, content string) {
	if ch, ok := c.byTitle[title]; ok {
		ch.Content = content
		ch.Summary = ""
		return
	}
	c.order = append(c.order, title)
	c.byTitle[title] = &Chapter{Title: title, Content: content}
}

// Get returns a copy of the chapter stored under title.
func (c *ChapterContent) Get(title string) (Chapter, bool) {
	ch, ok := c.byTitle[title]
	if !ok {
		return Chapter{}, false
	}
	return *ch, true
}

// SetSummary records a summary for an existing chapter.
func (c *ChapterContent) SetSummary(title, summary string) bool {
	ch, ok := c.byTitle[title]
	if !ok {
		return false
	}
	ch.Summary = summary
	return true
}

// Titles returns chapter titles in TOC order.
func (c *ChapterContent) Titles() []string {
	return append([]string(nil), c.order...)
}

// Chapters returns copies of all chapters in TOC order.
func (c *ChapterContent) Chapters() []Chapter {
	out := make([]Chapter, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, *c.byTitle[t])
	}
	return out
}

// Len returns the number of distinct chapters.
func (c *ChapterContent) Len() int { return len(c.order) }

// Empty lists chapters that received no text, usually because their
// heading never matched a page.
func (c *ChapterContent) Empty() []string {
	var out []string
	for _, t := range c.order {
		if c.byTitle[t].Content == "" {
			out = append(out, t)
		}
	}
	return out
}
