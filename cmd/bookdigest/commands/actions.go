package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/dgallion1/bookdigest/internal/chunker"
	"github.com/dgallion1/bookdigest/internal/container"
	"github.com/dgallion1/bookdigest/internal/library"
	"github.com/dgallion1/bookdigest/internal/parser"
	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/dgallion1/bookdigest/internal/segment"
	"github.com/dgallion1/bookdigest/internal/summarize"
	"github.com/dgallion1/bookdigest/internal/tokenizer"
)

// TOCAction prints the table of contents of FILE.
func TOCAction(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := parse(cfg, path)
	if err != nil {
		return err
	}

	w := out(cmd)
	fmt.Fprintf(w, "%s (%d pages)\n", doc.Title, len(doc.Pages))
	table := tablewriter.NewWriter(w)
	table.Header("Level", "Title", "Page")
	for _, e := range doc.TOC {
		table.Append(strconv.Itoa(e.Level), e.Title, strconv.Itoa(e.PageAnchor))
	}
	return table.Render()
}

// ChaptersAction segments FILE and lists its chapters with token counts.
func ChaptersAction(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tok, err := tokenizer.New(cfg.Tokenizer, cfg.TokenizerModel, cfg.TokenizerEncoding)
	if err != nil {
		return err
	}
	_, content, err := segmentFile(cfg, path, cmd.Bool("strict") || cfg.SegmentStrict)
	if err != nil {
		return err
	}
	for _, title := range content.Empty() {
		log.Warn("chapter has no content", "chapter", title)
	}

	table := tablewriter.NewWriter(out(cmd))
	table.Header("#", "Chapter", "Tokens", "Chars")
	for i, ch := range content.Chapters() {
		n, err := tok.Count(ch.Content)
		if err != nil {
			return err
		}
		table.Append(strconv.Itoa(i+1), ch.Title, strconv.Itoa(n), strconv.Itoa(len(ch.Content)))
	}
	return table.Render()
}

// PlanAction prints the chunk plan for one chapter without calling the model.
func PlanAction(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tok, err := tokenizer.New(cfg.Tokenizer, cfg.TokenizerModel, cfg.TokenizerEncoding)
	if err != nil {
		return err
	}
	_, content, err := segmentFile(cfg, path, cfg.SegmentStrict)
	if err != nil {
		return err
	}
	title := cmd.String("chapter")
	ch, ok := content.Get(title)
	if !ok {
		return fmt.Errorf("%w: %q", library.ErrChapterNotFound, title)
	}

	opts := summaryOptions(cmd, cfg.SummaryDetail, cfg.MinChunkSize, cfg.ChunkDelimiter)
	plan, err := chunker.Plan(tok, ch.Content, opts.Detail, opts.MinimumChunkSize, opts.Delimiter)
	if err != nil {
		return err
	}
	chunks, dropped, err := chunker.ChunkOnDelimiter(tok, ch.Content, plan.ChunkSize, opts.Delimiter)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out(cmd))
	table.Header("Setting", "Value")
	table.Append("chapter", title)
	table.Append("detail", strconv.FormatFloat(opts.Detail, 'f', -1, 64))
	table.Append("document tokens", strconv.Itoa(plan.DocumentTokens))
	table.Append("max chunks", strconv.Itoa(plan.MaxChunks))
	table.Append("target chunks", strconv.Itoa(plan.ChunkCount))
	table.Append("chunk size", strconv.Itoa(plan.ChunkSize))
	table.Append("chunks", strconv.Itoa(len(chunks)))
	table.Append("dropped fragments", strconv.Itoa(dropped))
	return table.Render()
}

// SummarizeAction summarizes one chapter of FILE. Summaries are persisted
// when SUMMARY_STORE is configured, so repeated runs reuse them.
func SummarizeAction(opts ...container.Option) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		path, err := fileArg(cmd)
		if err != nil {
			return err
		}
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		c, err := container.New(cfg, log, opts...)
		if err != nil {
			return err
		}
		defer c.Close()

		w := pipeline.NewWorker(c.Library, segment.Segmenter{Strict: cfg.SegmentStrict}, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}, log)
		snap, err := w.Ingest(ctx, path)
		if err != nil {
			return err
		}

		sumOpts := summaryOptions(cmd, cfg.SummaryDetail, cfg.MinChunkSize, cfg.ChunkDelimiter)
		if sumOpts.Model == "" {
			sumOpts.Model = cfg.LLMModel()
		}
		if !cmd.IsSet("recursive") {
			sumOpts.Recursive = cfg.SummarizeRecursive
		}

		summary, err := c.Library.Summary(ctx, snap.DocID, cmd.String("chapter"), sumOpts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), summary)
		return nil
	}
}

// summaryOptions overlays the chunking flags on the given defaults.
func summaryOptions(cmd *cli.Command, detail float64, minChunk int, delimiter string) summarize.Options {
	opts := summarize.Options{
		Detail:                 detail,
		MinimumChunkSize:       minChunk,
		Delimiter:              delimiter,
		Model:                  cmd.String("model"),
		Recursive:              cmd.Bool("recursive"),
		AdditionalInstructions: cmd.String("instructions"),
	}
	if cmd.IsSet("detail") {
		opts.Detail = cmd.Float("detail")
	}
	if n := cmd.Int("min-chunk"); n > 0 {
		opts.MinimumChunkSize = n
	}
	if d := cmd.String("delimiter"); d != "" {
		opts.Delimiter = d
	}
	return opts
}
