package main

import (
	"bufio"
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mosespipe/internal/moses"
)

func normalizeCmd(o *options) *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Normalize punctuation line by line",
		ArgsUsage: filterArgsUsage,
		Flags:     []cli.Flag{formatFlag(o)},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := parseFilterArgs(cmd)
			if err != nil {
				return err
			}
			if err := checkFormat(o.format); err != nil {
				return err
			}
			cfg := engineConfig(ctx, o, args.lang, o.file.Engines.Normalizer)

			return runFilter(cmd, args, func(in io.Reader, out io.Writer) error {
				return moses.WithNormalizer(cfg, func(n *moses.PunctNormalizer) error {
					return normalizeStream(ctx, n, in, out, o.format)
				})
			})
		},
	}
}

func normalizeStream(ctx context.Context, n *moses.PunctNormalizer, in io.Reader, out io.Writer, format string) error {
	sc := moses.NewLineScanner(in)
	w := bufio.NewWriter(out)
	for sc.Scan() {
		line, err := n.Normalize(ctx, sc.Text())
		if err != nil {
			return err
		}
		if format == "json" {
			err = writeJSONLine(w, line)
		} else {
			_, err = w.WriteString(line + "\n")
		}
		if err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return w.Flush()
}
