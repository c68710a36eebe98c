// Package moses wraps the Moses preprocessing scripts (tokenizer, sentence
// splitter and punctuation normalizer) as long-lived line engines.
package moses

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/samcharles93/mosespipe/internal/logger"
	"github.com/samcharles93/mosespipe/internal/pipe"
)

const (
	// DefaultLang is used when EngineConfig.Lang is empty.
	DefaultLang = "en"

	// ScriptsDirEnv names the directory holding the Moses perl scripts.
	ScriptsDirEnv = "MOSES_SCRIPTS_DIR"

	TokenizerScript  = "tokenizer.perl"
	SplitterScript   = "split-sentences.perl"
	NormalizerScript = "normalize-punctuation.perl"
)

// EngineConfig describes how to launch one engine.
type EngineConfig struct {
	// Lang is the language code passed to the engine with -l.
	Lang string

	// Command replaces the default "perl <ScriptsDir>/<script>" launcher.
	// Engine flags and the language are appended to it.
	Command []string

	// ScriptsDir holds the Moses scripts. Falls back to $MOSES_SCRIPTS_DIR,
	// then to the working directory.
	ScriptsDir string

	// Env is added to the engine's environment.
	Env []string

	ExitTimeout time.Duration
	KillTimeout time.Duration
	Logger      logger.Logger
}

// DefaultEngineConfig returns a config for lang using the default launcher.
func DefaultEngineConfig(lang string) EngineConfig {
	return EngineConfig{Lang: lang}
}

func (c EngineConfig) lang() string {
	if c.Lang == "" {
		return DefaultLang
	}
	return c.Lang
}

// argv builds the engine command line: launcher, flags, then "-l <lang>".
func (c EngineConfig) argv(script string, flags ...string) []string {
	var argv []string
	if len(c.Command) > 0 {
		argv = slices.Clone(c.Command)
	} else {
		dir := c.ScriptsDir
		if dir == "" {
			dir = os.Getenv(ScriptsDirEnv)
		}
		argv = []string{"perl", filepath.Join(dir, script)}
	}
	argv = append(argv, flags...)
	return append(argv, "-l", c.lang())
}

func (c EngineConfig) start(name, script string, shape pipe.Shape, flags ...string) (*pipe.Worker, error) {
	proc, err := pipe.Start(pipe.Config{
		Argv:        c.argv(script, flags...),
		Env:         c.Env,
		Name:        name,
		ExitTimeout: c.ExitTimeout,
		KillTimeout: c.KillTimeout,
		Logger:      c.Logger,
	})
	if err != nil {
		return nil, err
	}
	return pipe.NewWorker(proc, shape, pipe.DefaultSentinel), nil
}
