package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mosespipe/internal/moses"
)

func tokenizeCmd(o *options) *cli.Command {
	return &cli.Command{
		Name:      "tokenize",
		Usage:     "Tokenize one sentence per line",
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
			cfg := engineConfig(ctx, o, args.lang, o.file.Engines.Tokenizer)

			return runFilter(cmd, args, func(in io.Reader, out io.Writer) error {
				return moses.WithTokenizer(cfg, func(tok *moses.Tokenizer) error {
					return tokenizeStream(ctx, tok, in, out, o.format)
				})
			})
		},
	}
}

func tokenizeStream(ctx context.Context, tok *moses.Tokenizer, in io.Reader, out io.Writer, format string) error {
	sc := moses.NewLineScanner(in)
	w := bufio.NewWriter(out)
	for sc.Scan() {
		tokens, err := tok.Tokenize(ctx, sc.Text())
		if err != nil {
			return err
		}
		if format == "json" {
			err = writeJSONLine(w, tokens)
		} else {
			_, err = w.WriteString(strings.Join(tokens, " ") + "\n")
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
