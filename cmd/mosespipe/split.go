package main

import (
	"bufio"
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mosespipe/internal/moses"
)

func splitCmd(o *options) *cli.Command {
	var (
		unwrap   bool
		more     bool
		evenMore bool
	)

	return &cli.Command{
		Name:      "split",
		Usage:     "Split paragraphs into one sentence per line",
		ArgsUsage: filterArgsUsage,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "unwrap",
				Aliases: []string{"u"},
				Usage: "treat consecutive non-empty lines as one wrapped paragraph; " +
					"paragraphs must be separated by empty lines and are buffered in memory",
				Destination: &unwrap,
			},
			&cli.BoolFlag{
				Name:        "more",
				Usage:       "also split on colons and semicolons",
				Destination: &more,
			},
			&cli.BoolFlag{
				Name:        "even-more",
				Usage:       "also split after Unicode full stops, question marks and exclamation marks",
				Destination: &evenMore,
			},
			formatFlag(o),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := parseFilterArgs(cmd)
			if err != nil {
				return err
			}
			if err := checkFormat(o.format); err != nil {
				return err
			}
			applySplitConfig(cmd, o.file, &more, &evenMore)

			cfg := moses.SplitterConfig{
				EngineConfig: engineConfig(ctx, o, args.lang, o.file.Engines.Splitter),
				More:         more,
				EvenMore:     evenMore,
			}
			return runFilter(cmd, args, func(in io.Reader, out io.Writer) error {
				return moses.WithSplitter(cfg, func(s *moses.SentenceSplitter) error {
					return splitStream(ctx, s, in, out, unwrap, o.format)
				})
			})
		},
	}
}

// splitStream reads paragraphs from in and writes their sentences to out. In
// unwrap mode paragraphs are blank-line separated on both sides; otherwise
// each input line maps to its sentences and blank lines are kept.
func splitStream(ctx context.Context, s *moses.SentenceSplitter, in io.Reader, out io.Writer, unwrap bool, format string) error {
	paragraphs := moses.NewParagraphScanner(in, unwrap)

	if format == "json" {
		w := bufio.NewWriter(out)
		for paragraphs.Scan() {
			sentences, err := s.Split(ctx, paragraphs.Paragraph())
			if err != nil {
				return err
			}
			if err := writeJSONLine(w, sentences); err != nil {
				return err
			}
		}
		if err := paragraphs.Err(); err != nil {
			return err
		}
		return w.Flush()
	}

	pw := moses.NewParagraphWriter(out, unwrap)
	for paragraphs.Scan() {
		sentences, err := s.Split(ctx, paragraphs.Paragraph())
		if err != nil {
			return err
		}
		if err := pw.Write(sentences); err != nil {
			return err
		}
	}
	if err := paragraphs.Err(); err != nil {
		return err
	}
	return pw.Flush()
}
