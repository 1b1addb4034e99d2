// Package commands implements the bookdigest command line.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/container"
	"github.com/dgallion1/bookdigest/internal/doctree"
	"github.com/dgallion1/bookdigest/internal/logger"
	"github.com/dgallion1/bookdigest/internal/parser"
	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/dgallion1/bookdigest/internal/segment"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to a .env file",
		Value: ".env",
	}
}

func chunkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "chapter",
			Usage:    "chapter title as it appears in the table of contents",
			Required: true,
		},
		&cli.FloatFlag{
			Name:  "detail",
			Usage: "0 for one chunk, 1 for the finest granularity (default from SUMMARY_DETAIL)",
		},
		&cli.IntFlag{
			Name:  "min-chunk",
			Usage: "smallest chunk budget in tokens (default from MIN_CHUNK_SIZE)",
		},
		&cli.StringFlag{
			Name:  "delimiter",
			Usage: "fragment separator (default from CHUNK_DELIMITER)",
		},
	}
}

// NewApp builds the bookdigest command tree. opts customize the services
// the summarize command builds.
func NewApp(opts ...container.Option) *cli.Command {
	return &cli.Command{
		Name:  "bookdigest",
		Usage: "split books into chapters and summarize them at a chosen level of detail",
		Commands: []*cli.Command{
			{
				Name:      "toc",
				Usage:     "print the table of contents of a document",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{envFlag()},
				Action:    TOCAction,
			},
			{
				Name:      "chapters",
				Usage:     "segment a document and list its chapters",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "fail when a chapter heading is not found",
					},
				},
				Action: ChaptersAction,
			},
			{
				Name:      "plan",
				Usage:     "show how a chapter would be chunked without calling the model",
				ArgsUsage: "FILE",
				Flags:     append([]cli.Flag{envFlag()}, chunkFlags()...),
				Action:    PlanAction,
			},
			{
				Name:      "summarize",
				Usage:     "summarize one chapter of a document",
				ArgsUsage: "FILE",
				Flags: append(append([]cli.Flag{envFlag()}, chunkFlags()...),
					&cli.StringFlag{
						Name:  "model",
						Usage: "completion model (default from the provider config)",
					},
					&cli.BoolFlag{
						Name:  "recursive",
						Usage: "give each chunk the summaries of the chunks before it",
					},
					&cli.StringFlag{
						Name:  "instructions",
						Usage: "extra instructions appended to the system prompt",
					},
				),
				Action: SummarizeAction(opts...),
			},
		},
	}
}

// loadConfig reads the environment and builds a stderr logger.
func loadConfig(cmd *cli.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return config.Config{}, nil, err
	}
	logCfg := logger.FromStrings(cfg.LogLevel, "text")
	logCfg.Output = os.Stderr
	return cfg, logger.New(logCfg), nil
}

func fileArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: expected exactly one FILE argument", cmd.Name)
	}
	return cmd.Args().First(), nil
}

func parse(cfg config.Config, path string) (*doctree.Document, error) {
	doc, _, err := pipeline.ParseFile(path, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	return doc, err
}

func segmentFile(cfg config.Config, path string, strict bool) (*doctree.Document, *segment.ChapterContent, error) {
	doc, err := parse(cfg, path)
	if err != nil {
		return nil, nil, err
	}
	content, err := segment.Segmenter{Strict: strict}.Segment(doc.TOC, doc.Pages)
	if err != nil {
		return nil, nil, err
	}
	return doc, content, nil
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
