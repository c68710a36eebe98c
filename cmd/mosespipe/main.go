package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mosespipe/internal/logger"
	"github.com/samcharles93/mosespipe/internal/moses"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	o := &options{}
	return &cli.Command{
		Name:  "mosespipe",
		Usage: "Moses tokenizer, sentence splitter and punctuation normalizer as line filters",
		Flags: append(engineFlags(o), loggingFlags(o)...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return setup(ctx, cmd, o)
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			tokenizeCmd(o),
			splitCmd(o),
			normalizeCmd(o),
			serveCmd(o),
			versionCmd(o),
		},
	}
}

// setup loads the config file and installs the logger in ctx.
func setup(ctx context.Context, cmd *cli.Command, o *options) (context.Context, error) {
	cfg, err := loadConfig(o.configFile, cmd.IsSet("config"))
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	applyGlobalConfig(cmd, cfg, o)

	level := logger.ParseLevel(o.logLevel)
	if o.debug {
		level = slog.LevelDebug
	}
	log := logger.ForFormat(cmd.Root().ErrWriter, o.logFormat, level)
	return logger.WithContext(ctx, log), nil
}

// engineConfig builds the launch config for one engine from the global
// options. command overrides the default launcher when non-empty.
func engineConfig(ctx context.Context, o *options, lang string, command []string) moses.EngineConfig {
	return moses.EngineConfig{
		Lang:        lang,
		Command:     command,
		ScriptsDir:  o.scriptsDir,
		KillTimeout: o.killTimeout,
		Logger:      logger.FromContext(ctx),
	}
}
