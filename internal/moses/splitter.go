package moses

import (
	"context"
	"fmt"
	"strings"

	"github.com/samcharles93/mosespipe/internal/pipe"
)

// SplitterConfig configures a SentenceSplitter.
type SplitterConfig struct {
	EngineConfig

	// More makes the engine also split on colons and semicolons.
	More bool
	// EvenMore splits the engine's sentences again after every Unicode
	// terminator (see IsTerminator). This runs in-process.
	EvenMore bool
}

// DefaultSplitterConfig returns the splitter defaults: More on, EvenMore off.
func DefaultSplitterConfig(lang string) SplitterConfig {
	return SplitterConfig{
		EngineConfig: DefaultEngineConfig(lang),
		More:         true,
	}
}

// SentenceSplitter runs split-sentences.perl over whole paragraphs.
type SentenceSplitter struct {
	lang     string
	evenMore bool
	w        *pipe.Worker
}

// NewSentenceSplitter starts a sentence splitter engine.
func NewSentenceSplitter(cfg SplitterConfig) (*SentenceSplitter, error) {
	flags := []string{"-q", "-b"}
	if cfg.More {
		flags = append(flags, "-m")
	}
	w, err := cfg.start("splitter", SplitterScript, pipe.Sentinel, flags...)
	if err != nil {
		return nil, err
	}
	return &SentenceSplitter{lang: cfg.lang(), evenMore: cfg.EvenMore, w: w}, nil
}

// Split splits a paragraph, given as one or more non-blank lines, into
// sentences. An empty paragraph yields no sentences and no engine call.
//
//	s.Split(ctx, []string{"Hello World! Hello", "again."})
//	// ["Hello World!", "Hello again."]
func (s *SentenceSplitter) Split(ctx context.Context, paragraph []string) ([]string, error) {
	if len(paragraph) == 0 {
		return []string{}, nil
	}
	lines := make([]string, len(paragraph))
	for i, line := range paragraph {
		lines[i] = strings.TrimSpace(line)
		if lines[i] == "" {
			return nil, pipe.InvalidArgument("blank lines are not allowed")
		}
	}

	out, err := s.w.Call(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	sentences := make([]string, len(out))
	for i, line := range out {
		sentences[i] = strings.TrimSpace(line)
	}
	if s.evenMore {
		sentences = splitEvenMore(sentences)
	}
	return sentences, nil
}

func (s *SentenceSplitter) Lang() string {
	return s.lang
}

func (s *SentenceSplitter) Alive() bool {
	return s.w.Process().Alive()
}

func (s *SentenceSplitter) Close() error {
	return s.w.Close()
}

func (s *SentenceSplitter) String() string {
	return fmt.Sprintf("MosesSentenceSplitter(lang=%q)", s.lang)
}
