package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// options holds the values of the global flags after the config file has
// been applied.
type options struct {
	configFile  string
	scriptsDir  string
	killTimeout time.Duration
	format      string
	logLevel    string
	logFormat   string
	debug       bool

	file Config
}

func loggingFlags(o *options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &o.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &o.logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging, including engine stderr (shorthand for --log-level=debug)",
			Destination: &o.debug,
		},
	}
}

func engineFlags(o *options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config file",
			Value:       configPath(),
			Destination: &o.configFile,
		},
		&cli.StringFlag{
			Name:        "scripts-dir",
			Usage:       "directory containing the Moses perl scripts",
			Sources:     cli.EnvVars("MOSES_SCRIPTS_DIR"),
			Destination: &o.scriptsDir,
		},
		&cli.DurationFlag{
			Name:        "kill-timeout",
			Usage:       "grace period between SIGTERM and SIGKILL when stopping an engine",
			Value:       5 * time.Second,
			Destination: &o.killTimeout,
		},
	}
}

func formatFlag(o *options) cli.Flag {
	return &cli.StringFlag{
		Name:        "format",
		Usage:       "output format (text, json)",
		Value:       "text",
		Destination: &o.format,
	}
}
