package moses

import (
	"context"
	"fmt"
	"strings"

	"github.com/samcharles93/mosespipe/internal/pipe"
)

// Tokenizer runs tokenizer.perl and splits each sentence into tokens.
//
//	tok, err := moses.NewTokenizer(moses.DefaultEngineConfig("en"))
//	...
//	tokens, err := tok.Tokenize(ctx, "Hello World!") // ["Hello", "World", "!"]
type Tokenizer struct {
	lang string
	w    *pipe.Worker
}

// NewTokenizer starts a tokenizer engine.
func NewTokenizer(cfg EngineConfig) (*Tokenizer, error) {
	w, err := cfg.start("tokenizer", TokenizerScript, pipe.FixedArity, "-q", "-b")
	if err != nil {
		return nil, err
	}
	return &Tokenizer{lang: cfg.lang(), w: w}, nil
}

// Tokenize tokenizes one sentence. Trailing newlines are dropped; any other
// newline is rejected. Blank input returns no tokens without asking the
// engine.
func (t *Tokenizer) Tokenize(ctx context.Context, sentence string) ([]string, error) {
	sentence = strings.TrimRight(sentence, "\n")
	if strings.Contains(sentence, "\n") {
		return nil, pipe.InvalidArgument("sentence contains a newline")
	}
	if strings.TrimSpace(sentence) == "" {
		return []string{}, nil
	}
	line, err := t.w.CallLine(ctx, sentence)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	return strings.Fields(line), nil
}

func (t *Tokenizer) Lang() string {
	return t.lang
}

// Alive reports whether the engine can still take requests.
func (t *Tokenizer) Alive() bool {
	return t.w.Process().Alive()
}

// Close stops the engine. It is safe to call more than once.
func (t *Tokenizer) Close() error {
	return t.w.Close()
}

func (t *Tokenizer) String() string {
	return fmt.Sprintf("MosesTokenizer(lang=%q)", t.lang)
}
