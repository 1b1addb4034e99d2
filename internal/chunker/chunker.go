package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/bookdigest/internal/tokenizer"
)

// Ellipsis marks the place of a fragment too large to fit any chunk.
const Ellipsis = "..."

// Config controls chunking behavior.
type Config struct {
	MinimumChunkSize int    // Smallest chunk budget in tokens (finest granularity).
	Delimiter        string // Separator between atomic fragments.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinimumChunkSize: 500,
		Delimiter:        ".",
	}
}

// Combiner greedily packs delimiter-separated fragments into chunks whose
// token count never exceeds MaxTokens.
type Combiner struct {
	Tokenizer tokenizer.Tokenizer
	MaxTokens int
	Delimiter string
	// Header, when non-empty, starts every chunk.
	Header string
	// AllowEllipsis replaces an oversized fragment with Ellipsis when the
	// marker still fits the current chunk.
	AllowEllipsis bool
}

// Result is the output of a single Combine pass.
type Result struct {
	Chunks []string // Delimiter-joined chunks, in fragment order
	Groups [][]int  // Source fragment indices of each chunk
	// Dropped counts fragments that could not be placed in any chunk
	// because they alone exceed the budget.
	Dropped int
}

// Combine packs fragments in a single order-preserving pass. It issues at
// most three token counts per fragment.
func (c Combiner) Combine(fragments []string) (Result, error) {
	var res Result

	var base []string
	if c.Header != "" {
		base = []string{c.Header}
	}
	candidate := append([]string(nil), base...)
	var indices []int

	for i, frag := range fragments {
		alone, err := c.count(base, frag)
		if err != nil {
			return Result{}, err
		}
		if alone > c.MaxTokens {
			if c.AllowEllipsis {
				withMarker, err := c.count(candidate, Ellipsis)
				if err != nil {
					return Result{}, err
				}
				if withMarker <= c.MaxTokens {
					candidate = append(candidate, Ellipsis)
				}
			}
			res.Dropped++
			continue
		}

		extended, err := c.count(candidate, frag)
		if err != nil {
			return Result{}, err
		}
		if extended > c.MaxTokens {
			res.Chunks = append(res.Chunks, strings.Join(candidate, c.Delimiter))
			res.Groups = append(res.Groups, indices)
			candidate = append(append([]string(nil), base...), frag)
			indices = []int{i}
			continue
		}
		candidate = append(candidate, frag)
		indices = append(indices, i)
	}

	if len(candidate) > len(base) {
		res.Chunks = append(res.Chunks, strings.Join(candidate, c.Delimiter))
		res.Groups = append(res.Groups, indices)
	}
	return res, nil
}

// count returns the token count of parts plus extra, joined by the delimiter.
func (c Combiner) count(parts []string, extra string) (int, error) {
	text := extra
	if len(parts) > 0 {
		text = strings.Join(parts, c.Delimiter) + c.Delimiter + extra
	}
	return c.Tokenizer.Count(text)
}

// ChunkOnDelimiter splits text on delimiter and combines the pieces into
// chunks of at most maxTokens, each re-suffixed with the delimiter.
// Oversized fragments are replaced with an ellipsis where possible; the
// number of lost fragments is returned alongside the chunks.
func ChunkOnDelimiter(tok tokenizer.Tokenizer, text string, maxTokens int, delimiter string) ([]string, int, error) {
	c := Combiner{
		Tokenizer:     tok,
		MaxTokens:     maxTokens,
		Delimiter:     delimiter,
		AllowEllipsis: true,
	}
	res, err := c.Combine(strings.Split(text, delimiter))
	if err != nil {
		return nil, 0, fmt.Errorf("combine chunks: %w", err)
	}
	chunks := make([]string, len(res.Chunks))
	for i, ch := range res.Chunks {
		chunks[i] = ch + delimiter
	}
	return chunks, res.Dropped, nil
}

// ErrInvalidDetail is returned when detail is outside [0, 1].
var ErrInvalidDetail = errors.New("detail must be between 0 and 1")

// ChunkPlan is the concrete budget derived from a detail ratio.
type ChunkPlan struct {
	ChunkSize      int // Token budget per chunk
	ChunkCount     int // Interpolated number of chunks
	MaxChunks      int // Chunks produced at the minimum chunk size
	DocumentTokens int
}

// Plan translates detail (0 = one chunk, 1 = finest granularity) into a
// chunk size by interpolating between one chunk and the number of chunks
// produced at minimumChunkSize.
func Plan(tok tokenizer.Tokenizer, text string, detail float64, minimumChunkSize int, delimiter string) (ChunkPlan, error) {
	if detail < 0 || detail > 1 {
		return ChunkPlan{}, fmt.Errorf("%w: %v", ErrInvalidDetail, detail)
	}

	finest, _, err := ChunkOnDelimiter(tok, text, minimumChunkSize, delimiter)
	if err != nil {
		return ChunkPlan{}, err
	}
	maxChunks := len(finest)
	const minChunks = 1

	numChunks := int(minChunks + detail*float64(maxChunks-minChunks))
	if numChunks < minChunks {
		numChunks = minChunks
	}

	docTokens, err := tok.Count(text)
	if err != nil {
		return ChunkPlan{}, err
	}

	return ChunkPlan{
		ChunkSize:      max(minimumChunkSize, docTokens/numChunks),
		ChunkCount:     numChunks,
		MaxChunks:      maxChunks,
		DocumentTokens: docTokens,
	}, nil
}
