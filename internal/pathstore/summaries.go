package pathstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// SummaryPrefix is the key namespace for persisted chapter summaries.
const SummaryPrefix = "bookdigest/summaries"

var (
	nonSlugRe  = regexp.MustCompile(`[^a-z0-9-]`)
	dashRunsRe = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL/path-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = dashRunsRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// keySegment is a readable slug plus a short hash of the original name, so
// names that slugify identically (e.g. non-Latin titles) stay distinct.
func keySegment(name string) string {
	sum := sha256.Sum256([]byte(name))
	h := hex.EncodeToString(sum[:4])
	if slug := Slugify(name); slug != "" {
		return slug + "-" + h
	}
	return h
}

func documentKey(docID string) string {
	return SummaryPrefix + "/" + keySegment(docID)
}

func summaryKey(docID, title string) string {
	return documentKey(docID) + "/" + keySegment(title)
}

type summaryValue struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Save stores the summary of one chapter.
func (c *Client) Save(ctx context.Context, docID, title, summary string) error {
	return c.PutNode(ctx, summaryKey(docID, title), NodeRequest{
		Value:      summaryValue{Title: title, Summary: summary},
		MergeMode:  "replace",
		MemoryType: "summary",
		Salience:   0.5,
		Source:     "bookdigest:" + docID,
	})
}

// Load returns the stored summaries of docID keyed by chapter title.
func (c *Client) Load(ctx context.Context, docID string) (map[string]string, error) {
	nodes, err := c.ListChildren(ctx, documentKey(docID), 0)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	out := make(map[string]string, len(nodes))
	for _, n := range nodes {
		v, ok := n.Value.(map[string]any)
		if !ok {
			continue
		}
		title, _ := v["title"].(string)
		summary, _ := v["summary"].(string)
		if title == "" {
			continue
		}
		out[title] = summary
	}
	return out, nil
}

// Delete removes every stored summary of docID.
func (c *Client) Delete(ctx context.Context, docID string) error {
	return c.DeleteNode(ctx, documentKey(docID), true)
}
