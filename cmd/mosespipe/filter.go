package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

const filterArgsUsage = "<lang> [<inputfile> [<outputfile>]]"

type filterArgs struct {
	lang   string
	input  string
	output string
}

// parseFilterArgs reads the positional "<lang> [<input> [<output>]]". An
// input or output of "" or "-" means stdin or stdout.
func parseFilterArgs(cmd *cli.Command) (filterArgs, error) {
	if cmd.NArg() < 1 || cmd.NArg() > 3 {
		return filterArgs{}, cli.Exit(fmt.Sprintf("usage: %s %s %s", cmd.Root().Name, cmd.Name, filterArgsUsage), 2)
	}
	return filterArgs{
		lang:   cmd.Args().Get(0),
		input:  cmd.Args().Get(1),
		output: cmd.Args().Get(2),
	}, nil
}

func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return cli.Exit(fmt.Sprintf("error: unknown --format %q (want text or json)", format), 2)
	}
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// runFilter opens the input and output named by args and hands them to fn.
// The output is closed even when fn fails.
func runFilter(cmd *cli.Command, args filterArgs, fn func(in io.Reader, out io.Writer) error) (err error) {
	in, err := openInput(args.input, cmd.Root().Reader)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	defer in.Close()

	out, err := openOutput(args.output, cmd.Root().Writer)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()
	return fn(in, out)
}

// writeJSONLine writes v as one line of JSON.
func writeJSONLine(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
